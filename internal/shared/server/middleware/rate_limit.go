package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Megamind2600/resumerocketpro/internal/shared/server/respond"
)

// Route groups with their own buckets.
const (
	GroupAI      = "AI"
	GroupPolling = "POLLING"
	GroupDefault = "DEFAULT"
)

const (
	maxBuckets = 10000
	bucketTTL  = 10 * time.Minute
)

// Rule is a token bucket: Rate tokens per second up to Burst.
type Rule struct {
	Rate  float64
	Burst int
}

// Limits configures RateLimit. Groups without a Rule are not limited.
type Limits struct {
	Rules   map[string]Rule
	GroupOf func(*gin.Context) string
	Limiter *RateLimiter
}

// RateLimiter holds one bucket per client IP and route group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*bucket), now: now}
}

// RateLimit rejects requests over their group's budget with 429 and Retry-After.
func RateLimit(cfg Limits) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		group := GroupDefault
		if cfg.GroupOf != nil {
			if g := strings.TrimSpace(cfg.GroupOf(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		wait, ok := cfg.Limiter.Take(c.ClientIP()+"|"+group, rule)
		if ok {
			c.Next()
			return
		}
		secs := int((wait + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down.",
			gin.H{"group": group, "retryAfterMs": wait.Milliseconds()})
	}
}

// Take spends one token for key. When the bucket is empty it returns the
// wait until the next token and false.
func (l *RateLimiter) Take(key string, rule Rule) (time.Duration, bool) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return 0, true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.buckets[key]
	if b == nil {
		if len(l.buckets) >= maxBuckets {
			l.sweep(now)
		}
		b = &bucket{tokens: rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.tokens.ReserveN(now, 1)
	if !res.OK() {
		return time.Second, false
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// Len reports how many buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > bucketTTL {
			delete(l.buckets, key)
		}
	}
}
