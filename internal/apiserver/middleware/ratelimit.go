package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/guard"
)

// RateLimit consults the abuse guard before the request reaches the handler.
// The key is derived from the caller's identity (client IP); denial answers
// 429 with a Retry-After hint.
func RateLimit(g guard.Guard, logger *zap.Logger, prefix string, points int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + c.ClientIP()
		res, err := g.Allow(c.Request.Context(), key, points, window)
		if err != nil {
			// A broken guard backend must not take the endpoint down with it
			logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			retry := int(res.RetryAfter.Round(time.Second).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"retryAfter": retry,
			})
			return
		}
		c.Next()
	}
}
