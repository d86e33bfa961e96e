package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
)

// ── Per-IP token buckets ─────────────────────────────────────────────────────
// One limiter per client IP, kept in a TTL cache so idle IPs are evicted.

type ipLimiters struct {
	cache *gocache.Cache
	limit rate.Limit
	burst int
}

func newIPLimiters(perMinute int) *ipLimiters {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ipLimiters{
		cache: gocache.New(10*time.Minute, 5*time.Minute),
		limit: rate.Limit(float64(perMinute) / 60),
		burst: perMinute,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	if v, ok := l.cache.Get(ip); ok {
		l.cache.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.cache.Add(ip, lim, gocache.DefaultExpiration); err != nil {
		// another request created it first
		if v, ok := l.cache.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func limitBy(l *ipLimiters, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// RateLimiter allows perMinute requests per client IP with an equal burst.
func RateLimiter(perMinute int) gin.HandlerFunc {
	return limitBy(newIPLimiters(perMinute), "Muitas requisições. Tente novamente em instantes.")
}

// LoginRateLimiter limits sign-in attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return limitBy(newIPLimiters(20), "Muitas tentativas de login. Tente novamente em 1 minuto.")
}
