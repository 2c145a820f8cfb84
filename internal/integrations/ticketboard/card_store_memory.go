package ticketboard

import (
	"context"
	"sync"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
)

type InMemoryCardStore struct {
	mu    sync.RWMutex
	cards map[models.Ref]string
}

func NewInMemoryCardStore() *InMemoryCardStore {
	return &InMemoryCardStore{cards: make(map[models.Ref]string)}
}

func (s *InMemoryCardStore) FindCard(_ context.Context, ref models.Ref) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cards[ref]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return id, nil
}

func (s *InMemoryCardStore) SaveCard(_ context.Context, ref models.Ref, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[ref] = cardID
	return nil
}
