package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// caller is the authenticated member behind a request.
type caller struct {
	MemberID string
	TeamID   string
	Role     membership.Role
}

func callerFrom(c *gin.Context) caller {
	return caller{
		MemberID: c.GetString(middleware.CtxMemberIDKey),
		TeamID:   c.GetString(middleware.CtxTeamIDKey),
		Role:     middleware.RoleFromContext(c),
	}
}
