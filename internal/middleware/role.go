package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	"github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
)

func deny(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

// RequireTeam rejects callers whose token belongs to a team other than the
// one named by the :param path segment.
func RequireTeam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch teamID := c.GetString(CtxTeamIDKey); {
		case teamID == "":
			deny(c, errors.ErrUnauthorized)
		case c.Param(param) != teamID:
			deny(c, errors.ErrForbidden)
		default:
			c.Next()
		}
	}
}

// roleGate admits callers whose token role satisfies ok.
func roleGate(ok func(membership.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch role := RoleFromContext(c); {
		case role == "":
			deny(c, errors.ErrUnauthorized)
		case !ok(role):
			deny(c, errors.ErrForbidden)
		default:
			c.Next()
		}
	}
}

// RequireManager lets only roles that may manage the roster through.
func RequireManager() gin.HandlerFunc {
	return roleGate(membership.Role.CanManage)
}

// RequireRole lets the listed roles through.
func RequireRole(roles ...membership.Role) gin.HandlerFunc {
	allowed := make(map[membership.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return roleGate(func(role membership.Role) bool {
		_, ok := allowed[role]
		return ok
	})
}

// MemberLookup finds a member on a team roster.
type MemberLookup interface {
	GetMember(ctx context.Context, teamID, memberID string) (*models.Member, error)
}

// RequireActiveMember rejects tokens of members who have since been removed.
func RequireActiveMember(lookup MemberLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.GetString(CtxTeamIDKey)
		memberID := c.GetString(CtxMemberIDKey)
		if teamID == "" || memberID == "" {
			deny(c, errors.ErrUnauthorized)
			return
		}

		if _, err := lookup.GetMember(c.Request.Context(), teamID, memberID); err != nil {
			if errors.FromError(err).StatusCode == http.StatusNotFound {
				err = errors.ErrUnauthorized
			}
			deny(c, err)
			return
		}
		c.Next()
	}
}
