package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/handlers"
	"github.com/teamsync/teamsync/internal/monitoring"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

var errHealthDisabled = apperrors.New("HEALTH_DISABLED", "health endpoint is disabled", http.StatusNotFound)

func registerHealthRoutes(r *gin.Engine, prober *monitoring.Prober, cfg *app.Config) {
	handler := handlers.Health(prober)
	if !cfg.Monitoring.Health.Enabled {
		handler = func(c *gin.Context) { response.Error(c, errHealthDisabled) }
	}
	r.GET("/health", handler)
}
