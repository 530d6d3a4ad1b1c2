package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/response"
)

// ScoutingHandler records how far members have watched scouting videos.
type ScoutingHandler struct {
	scouting *services.ScoutingService
	roster   *services.TeamRoster
}

// NewScoutingHandler constructs a ScoutingHandler.
func NewScoutingHandler(scouting *services.ScoutingService, roster *services.TeamRoster) (*ScoutingHandler, error) {
	if scouting == nil || roster == nil {
		return nil, errors.New("scouting handler: scouting and roster are required")
	}
	return &ScoutingHandler{scouting: scouting, roster: roster}, nil
}

// PUT /api/teams/:teamID/scouting/:videoID/progress
func (h *ScoutingHandler) Save(c *gin.Context) {
	var body services.ProgressInput
	if !bindAndValidate(c, &body) {
		return
	}

	ctx := requestContext(c)
	member, err := h.roster.GetMember(ctx, c.Param("teamID"), callerFrom(c).MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	progress, err := h.scouting.SaveProgress(ctx, member, c.Param("videoID"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, progress)
}

// GET /api/teams/:teamID/scouting/:videoID/progress
func (h *ScoutingHandler) Get(c *gin.Context) {
	progress, err := h.scouting.Progress(requestContext(c), callerFrom(c).MemberID, c.Param("videoID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, progress)
}
