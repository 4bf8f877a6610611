package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
)

const (
	maxTrackedClients = 10_000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter is a per-client token bucket. Idle clients age out of a
// bounded cache.
type RateLimiter struct {
	scope    string
	rate     rate.Limit
	burst    int
	limiters *common.BoundedLRUCache[string, *rate.Limiter]
}

func NewRateLimiter(scope string, perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		scope:    scope,
		rate:     rate.Limit(perSecond),
		burst:    burst,
		limiters: common.NewBoundedLRUCache[string, *rate.Limiter](maxTrackedClients, clientIdleTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		rl.limiters.Set(key, l)
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Set(key, l)
	return l
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimited.WithLabelValues(rl.scope).Inc()
			httputil.TooManyRequests(c, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
