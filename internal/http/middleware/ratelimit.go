package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// localLimiter keeps one token bucket per caller.
type localLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

func newLocalLimiter(rps float64, burst int) *localLimiter {
	if burst < 1 {
		burst = 1
	}
	return &localLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (l *localLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
		if len(l.visitors)%1024 == 0 {
			l.sweep(now)
		}
	}
	v.seen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops callers idle for longer than l.idle. Caller holds mu.
func (l *localLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.seen) > l.idle {
			delete(l.visitors, k)
		}
	}
}

// LocalRateLimit is an in-process token bucket limiter keyed like the Redis
// one. It only sees this instance's traffic.
func LocalRateLimit(scope string, rps float64, burst int) gin.HandlerFunc {
	l := newLocalLimiter(rps, burst)
	return func(c *gin.Context) {
		if !l.allow(rateKey(c), time.Now()) {
			RLBlocked.WithLabelValues(scope + ":" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(scope + ":" + c.FullPath()).Inc()
		c.Next()
	}
}

// RateLimit uses Redis when it is configured and the local limiter
// otherwise. The choice is made per request so a late Redis init counts.
func RateLimit(scope string, maxRequests int, window time.Duration, rps float64, burst int) gin.HandlerFunc {
	shared := RedisRateLimit(scope, maxRequests, window)
	local := LocalRateLimit(scope, rps, burst)
	return func(c *gin.Context) {
		if redisClient != nil {
			shared(c)
			return
		}
		local(c)
	}
}
