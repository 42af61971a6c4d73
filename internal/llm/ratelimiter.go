package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimitedProvider caps one slot at rpm requests per minute. It holds a
// bucket of up to rpm tokens refilled continuously, so short bursts go out
// immediately and sustained traffic is spaced evenly.
type RateLimitedProvider struct {
	provider Provider
	rpm      int
	mu       sync.Mutex
	tokens   float64
	last     time.Time
}

// NewRateLimitedProvider wraps the given provider with a rate limiter
// that allows at most rpm requests per minute.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
		tokens:   float64(rpm),
		last:     time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Complete waits for a token, then forwards the request. If the wait would
// outlast ctx's deadline it fails at once instead of sleeping.
func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	wait := r.reserve(time.Now())
	if wait > 0 {
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
			r.release()
			return nil, fmt.Errorf("%s: rate limit of %d rpm needs %s, past the request deadline", r.Name(), r.rpm, wait.Round(time.Millisecond))
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			r.release()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return r.provider.Complete(ctx, req)
}

// reserve takes a token and returns how long the caller must wait for it.
func (r *RateLimitedProvider) reserve(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := float64(r.rpm)
	r.tokens += now.Sub(r.last).Minutes() * limit
	if r.tokens > limit {
		r.tokens = limit
	}
	r.last = now

	r.tokens--
	if r.tokens >= 0 {
		return 0
	}
	return time.Duration(-r.tokens * float64(time.Minute) / limit)
}

// release returns a token taken by a request that never went out.
func (r *RateLimitedProvider) release() {
	r.mu.Lock()
	r.tokens++
	r.mu.Unlock()
}
