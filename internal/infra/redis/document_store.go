package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"quiz-engine/internal/domain"
)

// DocumentStore keeps each persisted document under its own key:
//
//	SET quiz:doc:{name} {json}
//
// A single SET replaces the value atomically.
type DocumentStore struct {
	client *redis.Client
}

func NewDocumentStore(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}
	return data, nil
}

func (s *DocumentStore) Save(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (s *DocumentStore) key(name string) string {
	return "quiz:doc:" + name
}
