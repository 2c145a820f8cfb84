// Package store persists property rollup fields addressed by absolute path,
// "properties/{propertyId}/{field}".
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const pathPrefix = "properties"

// Path builds the absolute path of a property field.
func Path(propertyID, field string) string {
	return pathPrefix + "/" + propertyID + "/" + field
}

// SplitPath is the inverse of Path.
func SplitPath(path string) (propertyID, field string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != pathPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("invalid property path %q", path)
	}
	return parts[1], parts[2], nil
}

// RedisStore keeps one hash per property, "property:{id}".
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func hashKey(propertyID string) string {
	return "property:" + propertyID
}

// WritePath sets a single field. Each call is independent of the others.
func (s *RedisStore) WritePath(ctx context.Context, path string, value any) error {
	propertyID, field, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, hashKey(propertyID), field, value).Err(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Fields returns the stored rollup fields of a property as strings.
func (s *RedisStore) Fields(ctx context.Context, propertyID string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, hashKey(propertyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read property %s: %w", propertyID, err)
	}
	return fields, nil
}
