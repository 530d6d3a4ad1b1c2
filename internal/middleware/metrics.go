package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/pkg/metrics"
)

// Metrics observes latency per method, route template and status. Unmatched
// paths share one label so probing random join codes cannot grow the series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.APILatency.
			WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
