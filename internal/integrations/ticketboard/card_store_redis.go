package ticketboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
)

// RedisCardStore keeps one hash per property: deficient item id -> card id.
type RedisCardStore struct {
	client redis.UniversalClient
}

func NewRedisCardStore(client redis.UniversalClient) *RedisCardStore {
	return &RedisCardStore{client: client}
}

func cardsKey(propertyID string) string {
	return fmt.Sprintf("integrations:ticketboard:%s:cards", propertyID)
}

func (s *RedisCardStore) FindCard(ctx context.Context, ref models.Ref) (string, error) {
	id, err := s.client.HGet(ctx, cardsKey(ref.PropertyID), ref.ID).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find card: %w", err)
	}
	return id, nil
}

func (s *RedisCardStore) SaveCard(ctx context.Context, ref models.Ref, cardID string) error {
	if err := s.client.HSet(ctx, cardsKey(ref.PropertyID), ref.ID, cardID).Err(); err != nil {
		return fmt.Errorf("save card: %w", err)
	}
	return nil
}
