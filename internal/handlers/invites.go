package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/services"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

const qrCodeSize = 256

// InviteHandler lets team managers issue, list and revoke invites.
type InviteHandler struct {
	admission *services.AdmissionService
	registry  *services.InviteRegistry
}

type issueInviteRequest struct {
	Role string `json:"role" validate:"required,oneof=player admin"`
	// ExpiresInMs of zero falls back to the configured default. The ceiling
	// is one year, well inside what time.Duration can hold.
	ExpiresInMs int64 `json:"expires_in_ms" validate:"gte=0,lte=31536000000"`
	MaxUses     int   `json:"max_uses" validate:"gte=0"`
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(admission *services.AdmissionService, registry *services.InviteRegistry) (*InviteHandler, error) {
	if admission == nil || registry == nil {
		return nil, errors.New("invite handler: admission and registry are required")
	}
	return &InviteHandler{admission: admission, registry: registry}, nil
}

// POST /api/teams/:teamID/invites
func (h *InviteHandler) Issue(c *gin.Context) {
	var body issueInviteRequest
	if !bindAndValidate(c, &body) {
		return
	}

	issued, err := h.admission.IssueInvite(requestContext(c), services.IssueInviteInput{
		TeamID:    c.Param("teamID"),
		Role:      membership.Role(body.Role),
		CreatedBy: callerFrom(c).MemberID,
		ExpiresIn: time.Duration(body.ExpiresInMs) * time.Millisecond,
		MaxUses:   body.MaxUses,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, issued)
}

// GET /api/teams/:teamID/invites?status=active|expired|inactive|all
func (h *InviteHandler) List(c *gin.Context) {
	status := services.InviteStatus(c.DefaultQuery("status", string(services.InviteStatusActive)))

	invites, err := h.registry.ListInvites(requestContext(c), c.Param("teamID"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, invites, &response.Meta{Total: len(invites)})
}

// DELETE /api/teams/:teamID/invites/:inviteID
func (h *InviteHandler) Deactivate(c *gin.Context) {
	ctx := requestContext(c)

	invite, err := h.admission.RevokeInvite(ctx, c.Param("teamID"), c.Param("inviteID"), callerFrom(c).MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": invite.ID})
}

// GET /api/teams/:teamID/invites/:inviteID/qr
func (h *InviteHandler) QRCode(c *gin.Context) {
	invite, err := h.registry.GetInviteByID(requestContext(c), c.Param("inviteID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if invite.TeamID != c.Param("teamID") {
		response.Error(c, services.ErrInviteNotFound)
		return
	}

	png, err := qrcode.Encode(h.admission.JoinLink(invite.Code), qrcode.Medium, qrCodeSize)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "render invite qr code"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
