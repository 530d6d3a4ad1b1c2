package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/handlers"
	"github.com/teamsync/teamsync/internal/middleware"
)

func registerInviteRoutes(team *gin.RouterGroup, h *handlers.InviteHandler) {
	invites := team.Group("/invites", middleware.RequireManager())
	{
		invites.POST("", h.Issue)
		invites.GET("", h.List)
		invites.DELETE("/:inviteID", h.Deactivate)
		invites.GET("/:inviteID/qr", h.QRCode)
	}
}

func registerJoinRoutes(public *gin.RouterGroup, h *handlers.JoinHandler, limit gin.HandlerFunc) {
	public.GET("/join/:code", limit, h.Preview)
	public.POST("/join/:code", limit, h.Redeem)
}
