package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/response"
)

// GoalHandler manages player stat goals.
type GoalHandler struct {
	goals *services.GoalService
}

// NewGoalHandler constructs a GoalHandler.
func NewGoalHandler(goals *services.GoalService) (*GoalHandler, error) {
	if goals == nil {
		return nil, errors.New("goal handler: goals is required")
	}
	return &GoalHandler{goals: goals}, nil
}

// POST /api/teams/:teamID/goals
func (h *GoalHandler) Create(c *gin.Context) {
	var body services.CreateGoalInput
	if !bindAndValidate(c, &body) {
		return
	}

	goal, err := h.goals.Create(requestContext(c), c.Param("teamID"), callerFrom(c).MemberID, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, goal)
}

// GET /api/teams/:teamID/goals?member_id=
func (h *GoalHandler) List(c *gin.Context) {
	goals, err := h.goals.List(requestContext(c), c.Param("teamID"), c.Query("member_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, goals, &response.Meta{Total: len(goals)})
}

// PATCH /api/teams/:teamID/goals/:goalID
func (h *GoalHandler) Update(c *gin.Context) {
	var body services.UpdateGoalInput
	if !bindAndValidate(c, &body) {
		return
	}

	goal, err := h.goals.Update(requestContext(c), c.Param("teamID"), c.Param("goalID"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, goal)
}

// DELETE /api/teams/:teamID/goals/:goalID
func (h *GoalHandler) Delete(c *gin.Context) {
	if err := h.goals.Delete(requestContext(c), c.Param("teamID"), c.Param("goalID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("goalID")})
}
