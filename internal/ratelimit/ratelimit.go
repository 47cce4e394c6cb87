// Package ratelimit decides whether a client may issue another request.
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected client should wait, in whole seconds, at least one.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return (d + time.Second - 1) / time.Second * time.Second
}

// Limiter admits at most Limit requests per key per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
