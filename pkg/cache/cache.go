package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values round-trip through JSON, so Get
// decodes into dest regardless of the backing store.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// Expirer is implemented by stores that can report how long a key has left to live.
// A zero duration means the key does not expire.
type Expirer interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}
