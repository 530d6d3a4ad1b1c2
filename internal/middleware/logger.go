package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/pkg/logger"
)

// unmatchedRoute labels requests no route claimed.
const unmatchedRoute = "unmatched"

// routeLabel is the registered route template, so join codes and ids in
// the URL never reach logs or metric labels.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

// Logger writes a concise structured access log for each request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("route", routeLabel(c)),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if teamID := c.GetString(CtxTeamIDKey); teamID != "" {
			fields = append(fields,
				zap.String("team_id", teamID),
				zap.String("member_id", c.GetString(CtxMemberIDKey)),
			)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		log := logger.WithModule("http")
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status == 429:
			log.Warn("request throttled", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
