package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/internal/cache"
	"github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/logger"
	"github.com/teamsync/teamsync/pkg/response"
)

// RateLimit limits requests per (clientIP, route) within a fixed window.
// Store errors let the request through.
func RateLimit(store cache.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	return ScopedRateLimit("global", store, maxRequests, window)
}

// ScopedRateLimit is RateLimit with its own counters, so it can be stacked
// on routes that are already covered by the global limiter.
func ScopedRateLimit(scope string, store cache.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := "ratelimit:" + scope + ":" + c.ClientIP() + "|" + route

		count, resetIn, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit store unavailable",
				zap.String("path", route),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > int64(maxRequests) {
			response.Error(c, errors.ErrRateLimit.WithRetryAfter(resetIn+time.Second))
			c.Abort()
			return
		}

		c.Next()
	}
}
