package middleware

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/internal/auditctx"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/logger"
	"github.com/teamsync/teamsync/pkg/response"
)

// Recovery turns a handler panic into the standard 500 envelope and logs it
// against the member the request ran as. A client that hung up gets nothing
// written back.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			actor, _ := auditctx.FromContext(c.Request.Context())
			log := logger.WithTeam(logger.WithModule("http"), actor.TeamID).With(
				zap.String("route", routeLabel(c)),
				zap.String("member_id", actor.MemberID),
				zap.Any("error", recovered),
			)

			if clientGone(recovered) {
				log.Warn("client disconnected mid-response")
				c.Abort()
				return
			}

			log.Error("panic", zap.Stack("stack"))
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

func clientGone(recovered any) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	return stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, http.ErrAbortHandler)
}

// NotFoundHandler answers unknown routes with a JSON 404.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.New("ROUTE_NOT_FOUND", fmt.Sprintf("route %s not found", c.Request.URL.Path), http.StatusNotFound))
}
