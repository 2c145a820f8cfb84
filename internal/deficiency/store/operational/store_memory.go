package operational

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
)

// InMemoryStore mirrors RedisStore semantics for tests and local runs.
// Records are cloned on the way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	active   map[models.Ref]*models.DeficientItem
	archived map[models.Ref]*models.DeficientItem
	claims   map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		active:   make(map[models.Ref]*models.DeficientItem),
		archived: make(map[models.Ref]*models.DeficientItem),
		claims:   make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, di *models.DeficientItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey(di.Inspection, di.Item)
	if holder, ok := s.claims[key]; ok && holder != di.ID {
		if _, live := s.active[models.Ref{PropertyID: di.Property, ID: holder}]; live {
			return fmt.Errorf("deficient item %s already holds %s/%s: %w", holder, di.Inspection, di.Item, sentinel.ErrConflict)
		}
	}
	s.claims[key] = di.ID
	s.active[di.Ref()] = di.Clone()
	return nil
}

func (s *InMemoryStore) ClaimHolder(_ context.Context, inspectionID, itemID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.claims[claimKey(inspectionID, itemID)]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return id, nil
}

func (s *InMemoryStore) Update(_ context.Context, di *models.DeficientItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[di.Ref()]; !ok {
		return fmt.Errorf("update deficient item: %w", sentinel.ErrNotFound)
	}
	s.active[di.Ref()] = di.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if di, ok := s.active[ref]; ok {
		return di.Clone(), models.LocationActive, nil
	}
	if di, ok := s.archived[ref]; ok {
		return di.Clone(), models.LocationArchived, nil
	}
	return nil, models.LocationNone, sentinel.ErrNotFound
}

func (s *InMemoryStore) Move(_ context.Context, di *models.DeficientItem, archive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.active, s.archived
	if !archive {
		from, to = to, from
	}
	ref := di.Ref()
	if _, ok := from[ref]; !ok {
		return fmt.Errorf("move deficient item: %w", sentinel.ErrInvalidState)
	}

	key := claimKey(di.Inspection, di.Item)
	holder := s.claims[key]
	if !archive && holder != "" && holder != di.ID {
		if _, live := s.active[models.Ref{PropertyID: di.Property, ID: holder}]; live {
			return fmt.Errorf("move deficient item: %w", sentinel.ErrConflict)
		}
	}

	delete(from, ref)
	to[ref] = di.Clone()
	switch {
	case archive && holder == di.ID:
		delete(s.claims, key)
	case !archive:
		s.claims[key] = di.ID
	}
	return nil
}

func (s *InMemoryStore) FindAllByProperty(_ context.Context, propertyID string) ([]*models.DeficientItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*models.DeficientItem
	for ref, di := range s.active {
		if ref.PropertyID == propertyID {
			items = append(items, di.Clone())
		}
	}
	sortByID(items)
	return items, nil
}

func sortByID(items []*models.DeficientItem) {
	slices.SortFunc(items, func(a, b *models.DeficientItem) int {
		return strings.Compare(a.ID, b.ID)
	})
}
