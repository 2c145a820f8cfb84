package analytic

import (
	"context"
	"slices"
	"strings"
	"sync"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore query semantics for tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*models.DeficientItem
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]*models.DeficientItem)}
}

func (s *InMemoryStore) Upsert(_ context.Context, di *models.DeficientItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[di.ID] = di.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.DeficientItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	di, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return di.Clone(), nil
}

func (s *InMemoryStore) FindAllByInspection(_ context.Context, inspectionID string) ([]*models.DeficientItem, error) {
	return s.filter(func(di *models.DeficientItem) bool {
		return di.Inspection == inspectionID
	}), nil
}

func (s *InMemoryStore) FindByStates(_ context.Context, propertyID string, states []string) ([]*models.DeficientItem, error) {
	return s.filter(func(di *models.DeficientItem) bool {
		return di.Property == propertyID && slices.Contains(states, di.State)
	}), nil
}

func (s *InMemoryStore) ListPropertiesWithStates(_ context.Context, states []string) ([]string, error) {
	var ids []string
	for _, di := range s.filter(func(di *models.DeficientItem) bool {
		return slices.Contains(states, di.State)
	}) {
		if !slices.Contains(ids, di.Property) {
			ids = append(ids, di.Property)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// filter returns clones of the active items matching keep, ordered by id.
func (s *InMemoryStore) filter(keep func(*models.DeficientItem) bool) []*models.DeficientItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DeficientItem
	for _, di := range s.items {
		if !di.Archive && keep(di) {
			out = append(out, di.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.DeficientItem) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
