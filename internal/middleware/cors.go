package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured origins. With no allowlist every origin is
// accepted outside production, and none in production.
func CORS(allowedOrigins []string, production bool) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(allowedOrigins) > 0:
		corsConfig.AllowOrigins = allowedOrigins
	case production:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization", "X-Request-ID", "Idempotency-Key")
	corsConfig.AddExposeHeaders("X-Request-ID")
	return cors.New(corsConfig)
}
