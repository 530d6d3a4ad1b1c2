package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/response"
)

// JoinHandler serves the public join page endpoints.
type JoinHandler struct {
	admission *services.AdmissionService
	jwt       *iauth.JWTService
}

type redeemRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// NewJoinHandler constructs a JoinHandler.
func NewJoinHandler(admission *services.AdmissionService, jwt *iauth.JWTService) (*JoinHandler, error) {
	if admission == nil || jwt == nil {
		return nil, errors.New("join handler: admission and jwt are required")
	}
	return &JoinHandler{admission: admission, jwt: jwt}, nil
}

// GET /api/join/:code
func (h *JoinHandler) Preview(c *gin.Context) {
	preview, err := h.admission.Preview(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, preview)
}

// POST /api/join/:code
func (h *JoinHandler) Redeem(c *gin.Context) {
	var body redeemRequest
	if !bindAndValidate(c, &body) {
		return
	}

	member, err := h.admission.Redeem(requestContext(c), services.RedeemInput{
		Code:     c.Param("code"),
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := newSession(h.jwt, member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, session)
}
