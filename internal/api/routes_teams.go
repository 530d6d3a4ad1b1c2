package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/handlers"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/middleware"
)

func registerTeamRoutes(team *gin.RouterGroup, h *handlers.TeamHandler, activity *handlers.ActivityHandler) {
	team.GET("", h.Get)
	team.PATCH("/tier", middleware.RequireRole(membership.RoleCoach), h.SetTier)
	team.GET("/members", h.ListMembers)
	team.DELETE("/members/:memberID", middleware.RequireManager(), h.RemoveMember)
	team.GET("/activity", middleware.RequireManager(), activity.List)
}
