package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/realtime"
	"github.com/teamsync/teamsync/internal/services"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into authenticated team streams.
type RealtimeHandler struct {
	hub    *realtime.Hub
	jwt    *iauth.JWTService
	roster *services.TeamRoster
}

// NewRealtimeHandler constructs a RealtimeHandler.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService, roster *services.TeamRoster) (*RealtimeHandler, error) {
	if hub == nil || jwt == nil || roster == nil {
		return nil, errors.New("realtime handler: hub, jwt and roster are required")
	}
	return &RealtimeHandler{hub: hub, jwt: jwt, roster: roster}, nil
}

// GET /api/teams/:teamID/stream
//
// Browsers cannot set headers on websocket requests, so the token may also
// arrive as the token or access_token query parameter.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	teamID := c.Param("teamID")
	if claims.TeamID != teamID {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	// removed members keep a valid token until it expires
	if _, err := h.roster.GetMember(requestContext(c), teamID, claims.MemberID); err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	h.hub.Join(teamID, claims.MemberID, c.Writer, c.Request)
}
