package middlewares

import (
	"net/http"
	"sync"
	"time"

	"axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// minLimiterIdle is the shortest time an idle IP keeps its limiter.
const minLimiterIdle = 10 * time.Minute

// IPRateLimiter keeps one token bucket per IP address. A bucket untouched for idle is
// evicted; its IP starts again with a full bucket.
type IPRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: cache.New(idle, idle),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use. Every
// call pushes the eviction deadline back.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, ok := i.limiters.Get(ip); ok {
		i.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if v, ok := i.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(i.r, i.b)
	i.limiters.SetDefault(ip, limiter)
	return limiter
}

// Len is the number of IPs currently holding a limiter.
func (i *IPRateLimiter) Len() int {
	return i.limiters.ItemCount()
}

// limiterIdle never evicts a bucket before it could have refilled.
func limiterIdle(r rate.Limit, b int) time.Duration {
	if r <= 0 {
		return minLimiterIdle
	}
	refill := time.Duration(float64(b) / float64(r) * float64(time.Second))
	if refill > minLimiterIdle {
		return refill
	}
	return minLimiterIdle
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b, limiterIdle(r, b))
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.NewErrorResponse("too many requests"))
			return
		}
		c.Next()
	}
}
