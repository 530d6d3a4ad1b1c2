package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/handlers"
	"github.com/teamsync/teamsync/internal/middleware"
)

func registerChatRoutes(team *gin.RouterGroup, h *handlers.ChatHandler) {
	team.GET("/chat", h.History)
	team.POST("/chat", h.Post)
}

func registerScoutingRoutes(team *gin.RouterGroup, h *handlers.ScoutingHandler) {
	team.GET("/scouting/:videoID/progress", h.Get)
	team.PUT("/scouting/:videoID/progress", h.Save)
}

func registerGoalRoutes(team *gin.RouterGroup, h *handlers.GoalHandler) {
	team.GET("/goals", h.List)
	team.POST("/goals", middleware.RequireManager(), h.Create)
	team.PATCH("/goals/:goalID", middleware.RequireManager(), h.Update)
	team.DELETE("/goals/:goalID", middleware.RequireManager(), h.Delete)
}
