package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amirk1998/notedeck/pkg/errors"
)

// RateLimiter throttles outbound API calls per endpoint group so a
// misbehaving UI loop cannot hammer the server.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the limiter for the given endpoint group
func (rl *RateLimiter) GetLimiter(group string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[group]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[group] = limiter
	}

	return limiter
}

// Allow checks if the call is allowed
func (rl *RateLimiter) Allow(group string) bool {
	return rl.GetLimiter(group).Allow()
}

// Wait waits until the call is allowed or context is cancelled
func (rl *RateLimiter) Wait(ctx context.Context, group string) error {
	if err := rl.GetLimiter(group).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}

// CheckLimit checks the call budget and returns an error if exceeded
func (rl *RateLimiter) CheckLimit(group string) error {
	if !rl.Allow(group) {
		return errors.ErrRateLimitExceeded
	}
	return nil
}
