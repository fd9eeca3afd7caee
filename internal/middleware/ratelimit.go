package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jacerider/neo-image/internal/telemetry"
)

// bucketIdleTTL is how long a bucket may go unused before it is evicted.
// It is never shorter than the time an empty bucket takes to refill, so an
// evicted bucket is always indistinguishable from a fresh one.
const bucketIdleTTL = 10 * time.Minute

// RateLimit returns token bucket rate limiting middleware. Authenticated
// requests get one bucket per API key; anonymous ones (derivative
// delivery) get one bucket per client IP.
//
// Each bucket fills at rps tokens/sec up to burst tokens. A request that
// finds its bucket empty is rejected with 429. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int, metrics *telemetry.Metrics) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	retryAfter := strconv.Itoa(int(1/rps) + 1)
	buckets := newBucketSet(rps, burst, bucketIdleTTL, time.Now)

	return func(c *gin.Context) {
		bucket := "ip:" + c.ClientIP()
		if key, ok := c.Get(ContextAPIKey); ok {
			bucket = "key:" + key.(string)
		}

		if !buckets.limiter(bucket).Allow() {
			metrics.RateLimited(routeLabel(c))
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketSet holds one limiter per bucket name. Client IPs are unbounded, so
// idle entries are swept out at most once per ttl, on the request path.
//
// sync.Mutex protects the map from concurrent goroutine access.
type bucketSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]*bucketEntry
	lastSweep time.Time
}

func newBucketSet(rps float64, burst int, ttl time.Duration, now func() time.Time) *bucketSet {
	refill := time.Duration(float64(burst) / rps * float64(time.Second))
	return &bucketSet{
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       max(ttl, refill),
		now:       now,
		entries:   make(map[string]*bucketEntry),
		lastSweep: now(),
	}
}

// limiter returns the limiter for name, creating it on first use.
func (s *bucketSet) limiter(name string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		s.sweep(now)
	}

	e, ok := s.entries[name]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[name] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (s *bucketSet) sweep(now time.Time) {
	for name, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.ttl {
			delete(s.entries, name)
		}
	}
	s.lastSweep = now
}

func (s *bucketSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
