package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter tracks Reddit's X-Ratelimit headers and spaces requests out.
type rateLimiter struct {
	mu        sync.Mutex
	remaining float64
	resetTime time.Time
	minDelay  time.Duration
	lastCall  time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		remaining: 60, // Reddit OAuth default window
		resetTime: time.Now().Add(time.Minute),
		minDelay:  time.Second,
	}
}

// Wait blocks until it is safe to make another API call.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remaining <= 1 {
		waitDuration := time.Until(r.resetTime)
		if waitDuration > 0 {
			fmt.Printf("  Rate limit low, waiting %v until reset...\n", waitDuration.Round(time.Second))
			r.mu.Unlock()
			select {
			case <-ctx.Done():
				r.mu.Lock()
				return ctx.Err()
			case <-time.After(waitDuration):
				r.mu.Lock()
			}
		}
		// Reset after waiting
		r.remaining = 60
		r.resetTime = time.Now().Add(time.Minute)
	}

	// Ensure minimum delay between requests
	elapsed := time.Since(r.lastCall)
	if elapsed < r.minDelay {
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			r.mu.Lock()
			return ctx.Err()
		case <-time.After(r.minDelay - elapsed):
			r.mu.Lock()
		}
	}

	r.lastCall = time.Now()
	return nil
}

// UpdateFromResponse records the rate limit state from response headers.
func (r *rateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	remaining := resp.Header.Get("X-Ratelimit-Remaining")
	reset := resp.Header.Get("X-Ratelimit-Reset")
	if remaining == "" || reset == "" {
		return
	}
	rem, err := strconv.ParseFloat(remaining, 64)
	if err != nil {
		return
	}
	secs, err := strconv.Atoi(reset)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.remaining = rem
	r.resetTime = time.Now().Add(time.Duration(secs) * time.Second)
	r.mu.Unlock()
}
