package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avaldezco/sazonpos-backend/pkg/redis"
)

// Store persists cart snapshots keyed by terminal id.
type Store interface {
	Load(ctx context.Context, terminalID string) ([]LineItem, error)
	Save(ctx context.Context, terminalID string, items []LineItem) error
}

// RedisStore keeps each terminal's snapshot as a JSON array under a
// namespaced key with a rolling TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wires a snapshot store over the shared redis client. A zero
// ttl keeps snapshots until explicitly replaced.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load returns the stored lines for the terminal; a missing key is an empty
// cart and a corrupt payload is reported, never silently dropped.
func (s *RedisStore) Load(ctx context.Context, terminalID string) ([]LineItem, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(terminalID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return items, nil
}

// Save overwrites the terminal's snapshot. An empty cart is written as an
// empty array rather than deleted so hydration stays a single code path.
func (s *RedisStore) Save(ctx context.Context, terminalID string, items []LineItem) error {
	if items == nil {
		items = []LineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartKey(terminalID), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
