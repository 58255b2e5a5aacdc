package middleware

import (
	"log/slog"
	"net/http"

	"annadan-api/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit throttles each authenticated caller, falling back to the client
// IP. Redis errors let the request through.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		ok, wait, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if logger != nil {
				logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", ratelimit.RetryAfterSeconds(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
