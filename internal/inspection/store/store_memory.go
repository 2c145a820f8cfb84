package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"propcheck/internal/inspection/models"
	"propcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps inspections as JSON so readers never share state with
// writers.
type InMemoryStore struct {
	mu          sync.RWMutex
	inspections map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{inspections: make(map[string][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, insp *models.Inspection) error {
	raw, err := json.Marshal(insp)
	if err != nil {
		return fmt.Errorf("marshal inspection: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections[insp.ID] = raw
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inspections, id)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Inspection, error) {
	s.mu.RLock()
	raw, ok := s.inspections[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return decode(raw)
}

func (s *InMemoryStore) FindAllByProperty(_ context.Context, propertyID string) ([]*models.Inspection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Inspection
	for _, raw := range s.inspections {
		insp, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if insp.Property == propertyID {
			out = append(out, insp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Inspection) int {
		if a.CreationDate != b.CreationDate {
			if a.CreationDate > b.CreationDate {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func decode(raw []byte) (*models.Inspection, error) {
	var insp models.Inspection
	if err := json.Unmarshal(raw, &insp); err != nil {
		return nil, fmt.Errorf("unmarshal inspection: %w", err)
	}
	return &insp, nil
}
