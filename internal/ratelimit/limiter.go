// Package ratelimit caps the outbound request rate against quota-limited
// upstream APIs.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter gates requests to one provider
type Limiter interface {
	// Wait blocks until the next request may proceed or ctx is done
	Wait(ctx context.Context) error
}

type limiter struct {
	bucket *rate.Limiter
}

// NewLimiter creates a token-bucket limiter allowing rps requests per second
// with the given burst. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) Limiter {
	if rps <= 0 {
		return unlimited{}
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}
	return nil
}

type unlimited struct{}

func (unlimited) Wait(context.Context) error { return nil }
