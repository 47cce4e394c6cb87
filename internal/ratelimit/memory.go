package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is a per-process token bucket per key. Idle keys are evicted on the
// next call after they have been quiet for a full window.
type Memory struct {
	mtx     sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	clients map[string]*bucket
	swept   time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*bucket),
	}
}

func (m *Memory) Allow(ctx context.Context, key string) (*Result, error) {
	now := m.now()

	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.sweep(now)

	b, ok := m.clients[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(m.window/time.Duration(m.limit)), m.limit)}
		m.clients[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until one full token is available again.
	resetAt := now
	if tokens < 1 {
		missing := 1 - tokens
		resetAt = now.Add(time.Duration(missing * float64(m.window) / float64(m.limit)))
	}

	return &Result{
		Allowed:   allowed,
		Limit:     m.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.swept) < m.window {
		return
	}
	for key, b := range m.clients {
		if now.Sub(b.lastSeen) >= m.window {
			delete(m.clients, key)
		}
	}
	m.swept = now
}
