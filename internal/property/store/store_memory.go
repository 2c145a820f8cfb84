package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	fields map[string]map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{fields: make(map[string]map[string]string)}
}

func (s *InMemoryStore) WritePath(_ context.Context, path string, value any) error {
	propertyID, field, err := SplitPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields[propertyID] == nil {
		s.fields[propertyID] = make(map[string]string)
	}
	s.fields[propertyID][field] = fmt.Sprint(value)
	return nil
}

func (s *InMemoryStore) Fields(_ context.Context, propertyID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.fields[propertyID]), nil
}
