package middleware

import (
	"net/http"

	"github.com/kajrofficep/cafeteria/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// LoginRateLimiter throttles credential checks per client IP.
func LoginRateLimiter(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis 故障时放行，登录可用性优先
			c.Next()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
