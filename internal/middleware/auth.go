package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/auditctx"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxMemberIDKey = "memberID"
	CtxTeamIDKey   = "teamID"
	CtxRoleKey     = "memberRole"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			c.Header("WWW-Authenticate", bearerChallenge(err))
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxMemberIDKey, claims.MemberID)
		c.Set(CtxTeamIDKey, claims.TeamID)
		c.Set(CtxRoleKey, claims.Role)
		c.Request = c.Request.WithContext(auditctx.Merge(c.Request.Context(), auditctx.Actor{
			MemberID: claims.MemberID,
			TeamID:   claims.TeamID,
		}))

		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by Auth.
func ClaimsFromContext(c *gin.Context) (*iauth.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*iauth.Claims)
	return claims, ok && claims != nil
}

// RoleFromContext returns the caller's role, or "" when unauthenticated.
func RoleFromContext(c *gin.Context) membership.Role {
	v, ok := c.Get(CtxRoleKey)
	if !ok {
		return ""
	}
	role, _ := v.(membership.Role)
	return role
}

// bearerChallenge tells clients whether to refresh or sign in again.
func bearerChallenge(err error) string {
	if stderrors.Is(err, iauth.ErrTokenExpired) {
		return `Bearer error="invalid_token", error_description="token expired"`
	}
	return `Bearer error="invalid_token"`
}
