package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	"github.com/teamsync/teamsync/internal/services"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

// TeamHandler serves team lifecycle and roster endpoints.
type TeamHandler struct {
	teams  *services.TeamService
	roster *services.TeamRoster
	jwt    *iauth.JWTService
}

// sessionResponse is returned whenever a member is created and signed in.
type sessionResponse struct {
	Team        *models.Team   `json:"team,omitempty"`
	Member      *models.Member `json:"member"`
	AccessToken string         `json:"access_token"`
	ExpiresIn   int            `json:"expires_in"`
}

type setTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free pro club enterprise"`
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(teams *services.TeamService, roster *services.TeamRoster, jwt *iauth.JWTService) (*TeamHandler, error) {
	if teams == nil || roster == nil || jwt == nil {
		return nil, errors.New("team handler: teams, roster and jwt are required")
	}
	return &TeamHandler{teams: teams, roster: roster, jwt: jwt}, nil
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var body services.CreateTeamInput
	if !bindAndValidate(c, &body) {
		return
	}

	team, owner, err := h.teams.Create(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := newSession(h.jwt, owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	session.Team = team
	response.Success(c, http.StatusCreated, session)
}

// GET /api/teams/:teamID
func (h *TeamHandler) Get(c *gin.Context) {
	overview, err := h.teams.Overview(requestContext(c), c.Param("teamID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// PATCH /api/teams/:teamID/tier
func (h *TeamHandler) SetTier(c *gin.Context) {
	var body setTierRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.teams.SetTier(requestContext(c), c.Param("teamID"), membership.Tier(body.Tier), callerFrom(c).MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// GET /api/teams/:teamID/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.roster.ListMembers(requestContext(c), c.Param("teamID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, members, &response.Meta{Total: len(members)})
}

// DELETE /api/teams/:teamID/members/:memberID
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	who := callerFrom(c)
	memberID := c.Param("memberID")

	if memberID == who.MemberID {
		response.Error(c, apperrors.NewBadRequest("you cannot remove yourself"))
		return
	}

	member, err := h.roster.GetMember(requestContext(c), c.Param("teamID"), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if member.Role == membership.RoleCoach && who.Role != membership.RoleCoach {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	if _, err := h.roster.RemoveMember(requestContext(c), member.TeamID, member.ID, who.MemberID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": member.ID})
}

func newSession(jwt *iauth.JWTService, member *models.Member) (*sessionResponse, error) {
	token, err := jwt.GenerateAccessToken(iauth.AccessTokenInput{
		MemberID: member.ID,
		TeamID:   member.TeamID,
		Role:     member.Role,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "issue access token")
	}
	return &sessionResponse{
		Member:      member,
		AccessToken: token,
		ExpiresIn:   int(jwt.TTL().Seconds()),
	}, nil
}
