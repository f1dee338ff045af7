package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/ratelimit"

	"github.com/giygas/event-counter-api/logging"
	"github.com/giygas/event-counter-api/metrics"
)

// DefaultBucketIdleTTL is how long a client's bucket survives without requests
const DefaultBucketIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client. Buckets live in a TTL cache
// and are dropped after idling, by which time they would have refilled.
type RateLimiter struct {
	rate     float64
	capacity int64
	buckets  *ttlcache.Cache[string, *ratelimit.Bucket]

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to
// capacity. Call Start to run the expiry loop and Stop to end it.
func NewRateLimiter(rate float64, capacity int64, idleTTL time.Duration) *RateLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultBucketIdleTTL
	}
	cache := ttlcache.New[string, *ratelimit.Bucket](
		ttlcache.WithTTL[string, *ratelimit.Bucket](idleTTL),
	)
	rl := &RateLimiter{
		rate:     rate,
		capacity: capacity,
		buckets:  cache,
	}
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *ratelimit.Bucket]) {
		metrics.RateLimiterActiveBuckets.Set(float64(cache.Len()))
	})
	return rl
}

// Start runs the expiry loop; it blocks until Stop. Start after Stop returns
// immediately.
func (rl *RateLimiter) Start() {
	rl.mu.Lock()
	if rl.stopped || rl.running {
		rl.mu.Unlock()
		return
	}
	rl.running = true
	rl.mu.Unlock()

	rl.buckets.Start()
}

// Stop ends the expiry loop. It is safe to call without Start and more than once.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	running := rl.running && !rl.stopped
	rl.stopped = true
	rl.mu.Unlock()

	// ttlcache's Stop blocks until the loop receives it
	if running {
		rl.buckets.Stop()
	}
}

// Len returns the number of live buckets
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

func (rl *RateLimiter) getBucket(client string) *ratelimit.Bucket {
	// Get refreshes the TTL of an existing bucket
	if item := rl.buckets.Get(client); item != nil {
		return item.Value()
	}

	item, found := rl.buckets.GetOrSet(client, ratelimit.NewBucketWithRate(rl.rate, rl.capacity))
	if !found {
		metrics.RateLimiterActiveBuckets.Set(float64(rl.buckets.Len()))
	}
	return item.Value()
}

// getTokenCost prices a request; fan-out and bulk deletes cost the most
func getTokenCost(r *http.Request) int64 {
	path := r.URL.Path

	switch path {
	case "/metrics":
		return 0
	case "/health":
		return 5
	case "/monitor/counters":
		return 10
	case "/monitor/events":
		if r.Method == http.MethodDelete {
			return 100
		}
	}

	switch {
	case strings.HasPrefix(path, "/monitor/events/"):
		return 50
	case strings.HasPrefix(path, "/monitor/event/count/"):
		return 10
	case strings.HasPrefix(path, "/monitor/event/"):
		return 20
	}

	return 20
}

// Handler is the rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	limit := strconv.FormatInt(rl.capacity, 10)
	rate := formatRate(rl.rate)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cost := getTokenCost(r)
		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Rate", rate)

		if cost == 0 {
			next.ServeHTTP(w, r)
			return
		}

		bucket := rl.getBucket(clientHost(r.RemoteAddr))
		if bucket.TakeAvailable(cost) < cost {
			logging.Debug("Rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path, "cost", cost)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}
