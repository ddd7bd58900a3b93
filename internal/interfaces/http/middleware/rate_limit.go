// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	redisdb "github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	"golang.org/x/time/rate"
)

// RateLimit limits requests per client IP to RateLimitPerMinute. Counting
// happens in Redis so every instance shares the window; when Redis is not
// reachable each instance falls back to its own token bucket.
func RateLimit(cfg *config.Config, client *redisdb.Client, logger *logrus.Logger) gin.HandlerFunc {
	limit := cfg.Security.RateLimitPerMinute
	local := newLocalLimiter(limit, time.Minute)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		allowed, remaining, err := client.Allow(ctx, "rate_limit:"+clientIP, limit, time.Minute)
		cancel()
		if err != nil {
			if !errors.Is(err, redisdb.ErrUnavailable) {
				logger.WithError(err).Debug("rate limit falling back to local limiter")
			}
			allowed, remaining = local.allow(clientIP)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		if !allowed {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}

// localLimiter keeps one token bucket per client. A bucket idle for a whole
// window has refilled, so it is dropped and recreated on the next request.
type localLimiter struct {
	mu        sync.Mutex
	limit     int
	every     rate.Limit
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
	clients   map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	l := &localLimiter{
		limit:   limit,
		idle:    window,
		now:     time.Now,
		clients: make(map[string]*visitor),
	}
	if limit > 0 {
		l.every = rate.Every(window / time.Duration(limit))
	}
	l.lastSweep = l.now()
	return l
}

func (l *localLimiter) allow(key string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	v, ok := l.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.limit)}
		l.clients[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// sweep drops idle clients. Callers hold mu.
func (l *localLimiter) sweep(now time.Time) {
	for key, v := range l.clients {
		if now.Sub(v.lastSeen) >= l.idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
