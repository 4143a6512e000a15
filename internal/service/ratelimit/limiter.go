package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// full reports whether b has refilled to capacity by now.
func (b *bucket) full(now time.Time) bool {
	return b.tokens+now.Sub(b.last).Seconds()*b.refillRate >= b.capacity
}

// sweepEvery is how many Allow calls pass between sweeps of idle buckets.
const sweepEvery = 1024

// Limiter is a keyed token bucket. Buckets that have refilled completely are
// indistinguishable from new ones and are dropped periodically.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*bucket
	now   func() time.Time
	calls int
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.calls++; l.calls%sweepEvery == 0 {
		l.sweep(now)
	}
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.m {
		if b.full(now) {
			delete(l.m, k)
		}
	}
}

// Policy binds a Limiter to fixed bucket parameters.
type Policy struct {
	limiter   *Limiter
	capacity  float64
	perSecond float64
}

func NewPolicy(l *Limiter, capacity, perSecond float64) *Policy {
	return &Policy{limiter: l, capacity: capacity, perSecond: perSecond}
}

// Allow consumes a token from key's bucket.
func (p *Policy) Allow(key string) bool {
	return p.limiter.Allow(key, p.capacity, p.perSecond)
}
