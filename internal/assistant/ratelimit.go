package assistant

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by session.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a rate limiter and starts its eviction goroutine.
// A non-positive limit disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	rl.startEviction()
	return rl
}

// Allow records a request for key and reports whether it is within the limit.
func (r *RateLimiter) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.exceededLocked(key, now) {
		return false
	}
	r.requests[key] = append(r.requests[key], now)
	return true
}

// Exceeded reports whether key has used up its window without recording
// a request.
func (r *RateLimiter) Exceeded(key string) bool {
	if r.limit <= 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exceededLocked(key, time.Now())
}

// Record counts one request for key.
func (r *RateLimiter) Record(key string) {
	if r.limit <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.requests[key] = append(pruneBefore(r.requests[key], now.Add(-r.window)), now)
}

func (r *RateLimiter) exceededLocked(key string, now time.Time) bool {
	recent := pruneBefore(r.requests[key], now.Add(-r.window))
	if len(recent) == 0 {
		delete(r.requests, key)
	} else {
		r.requests[key] = recent
	}
	return len(recent) >= r.limit
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.evict()
			}
		}
	}()
}

func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-r.window)
	for key, times := range r.requests {
		fresh := pruneBefore(times, cutoff)
		if len(fresh) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = fresh
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	var fresh []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
