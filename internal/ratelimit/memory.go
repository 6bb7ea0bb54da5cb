package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory keeps one token bucket per key in process memory. Buckets idle for
// longer than idleTTL are full again, so they are dropped.
type Memory struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	buckets   map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory allows perMinute requests per key on average with the given burst.
func NewMemory(perMinute, burst int) *Memory {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = perMinute
	}

	refill := time.Duration(float64(burst) / float64(perMinute) * float64(time.Minute))
	idleTTL := time.Minute
	if refill > idleTTL {
		idleTTL = refill
	}

	return &Memory{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// Len reports how many keys currently hold a bucket.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// sweep runs at most once per idleTTL. Callers hold m.mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.idleTTL {
		return
	}
	m.lastSweep = now
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= m.idleTTL {
			delete(m.buckets, key)
		}
	}
}
