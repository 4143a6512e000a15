package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgcache "StockTracker/pkg/cache"
	applogger "StockTracker/pkg/logger"
)

// Memoizer caches the results of expensive calls keyed by (operation, arguments).
// Calls for the same key are serialized, so a key is computed at most once while its
// entry lives. Failed calls are not cached.
type Memoizer struct {
	store pkgcache.Service
	ttl   time.Duration
	log   *applogger.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is held per key while any caller waits on or owns it.
type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoizer creates a memoizer over store. ttl <= 0 keeps entries for the store's lifetime.
func NewMemoizer(store pkgcache.Service, ttl time.Duration, l *applogger.Logger) *Memoizer {
	if l == nil {
		l = applogger.Nop()
	}
	return &Memoizer{
		store: store,
		ttl:   ttl,
		log:   l,
		locks: make(map[string]*keyLock),
	}
}

// Key builds the cache key for an operation and its arguments.
func Key(operation string, args ...interface{}) string {
	return pkgcache.GenerateKeyWithParams(operation, args...)
}

// acquire blocks until the caller owns key or ctx is done.
func (m *Memoizer) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return func() {
			<-kl.ch
			m.unref(key, kl)
		}, nil
	case <-ctx.Done():
		m.unref(key, kl)
		return nil, ctx.Err()
	}
}

// unref drops the lock entry once nobody waits on or owns it.
func (m *Memoizer) unref(key string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
}

// Memoize returns the cached value for key, or calls fn and caches its result.
func Memoize[T any](ctx context.Context, m *Memoizer, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	release, err := m.acquire(ctx, key)
	if err != nil {
		return zero, err
	}
	defer release()

	var cached T
	err = m.store.Get(ctx, key, &cached)
	switch {
	case err == nil:
		m.log.Debug("memo hit", applogger.String("key", key))
		return cached, nil
	case !errors.Is(err, pkgcache.ErrCacheMiss):
		m.log.Warn("memo read failed, recomputing", applogger.String("key", key), applogger.Error(err))
	}

	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if err := m.store.Set(ctx, key, v, m.ttl); err != nil {
		m.log.Warn("memo write failed", applogger.String("key", key), applogger.Error(err))
	}
	return v, nil
}
