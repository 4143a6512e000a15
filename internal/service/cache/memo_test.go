package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgcache "StockTracker/pkg/cache"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
}

func newMemo(t *testing.T) *Memoizer {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	return NewMemoizer(store, 0, nil)
}

func TestMemoize_CallsOncePerKey(t *testing.T) {
	m := newMemo(t)
	ctx := context.Background()
	var calls int32

	fetch := func(ctx context.Context) (*payload, error) {
		atomic.AddInt32(&calls, 1)
		return &payload{Symbol: "AAPL", Close: 172.34}, nil
	}

	key := Key("historical", "AAPL", "1y")
	for i := 0; i < 3; i++ {
		got, err := Memoize(ctx, m, key, fetch)
		if err != nil {
			t.Fatalf("Memoize: %v", err)
		}
		if got.Close != 172.34 {
			t.Errorf("close = %v", got.Close)
		}
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	// different arguments are a different key
	if _, err := Memoize(ctx, m, Key("historical", "AAPL", "5y"), fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	m := newMemo(t)
	ctx := context.Background()
	boom := errors.New("upstream down")
	var calls int

	fail := func(ctx context.Context) (*payload, error) {
		calls++
		return nil, boom
	}
	for i := 0; i < 2; i++ {
		if _, err := Memoize(ctx, m, "intraday:AAPL", fail); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestMemoize_ConcurrentCallersShareOneFetch(t *testing.T) {
	m := newMemo(t)
	ctx := context.Background()
	var calls int32

	slow := func(ctx context.Context) (*payload, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return &payload{Symbol: "MSFT"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Memoize(ctx, m, "intraday:MSFT", slow); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMemoize_WaitHonorsContext(t *testing.T) {
	m := newMemo(t)
	started := make(chan struct{})
	unblock := make(chan struct{})

	go func() {
		_, _ = Memoize(context.Background(), m, "k", func(ctx context.Context) (int, error) {
			close(started)
			<-unblock
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Memoize(ctx, m, "k", func(ctx context.Context) (int, error) { return 2, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	close(unblock)
}

func TestMemoize_ReleasesIdleLocks(t *testing.T) {
	m := newMemo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("intraday", i%4)
			_, _ = Memoize(ctx, m, key, func(ctx context.Context) (int, error) { return i, nil })
		}(i)
	}
	wg.Wait()

	failing := func(ctx context.Context) (int, error) { return 0, errors.New("boom") }
	_, _ = Memoize(ctx, m, "failing", failing)

	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.locks); n != 0 {
		t.Errorf("%d lock entries left after all calls returned", n)
	}
}
