package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/monitoring"
	"github.com/teamsync/teamsync/pkg/response"
)

// Health evaluates every registered probe. A down dependency answers 503
// with the same report so load balancers and operators see the cause.
func Health(prober *monitoring.Prober) gin.HandlerFunc {
	return func(c *gin.Context) {
		if prober == nil {
			response.Success(c, http.StatusOK, monitoring.HealthReport{Status: monitoring.StatusUp})
			return
		}

		report := prober.Evaluate(c.Request.Context())
		if !report.Healthy() {
			c.JSON(http.StatusServiceUnavailable, response.Response{Success: false, Data: report})
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
