package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/response"
)

// ActivityHandler exposes a team's audit trail to its managers.
type ActivityHandler struct {
	audit *services.AuditService
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(audit *services.AuditService) (*ActivityHandler, error) {
	if audit == nil {
		return nil, errors.New("activity handler: audit is required")
	}
	return &ActivityHandler{audit: audit}, nil
}

// GET /api/teams/:teamID/activity?action=&actor_id=&result=&before=&limit=
func (h *ActivityHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.audit.TeamActivity(requestContext(c), c.Param("teamID"), services.ActivityQuery{
		Action:  c.Query("action"),
		ActorID: c.Query("actor_id"),
		Result:  c.Query("result"),
		Before:  c.Query("before"),
		Limit:   limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page.Entries, &response.Meta{
		Total:      len(page.Entries),
		NextCursor: page.NextCursor,
	})
}
