package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/auditctx"
	"github.com/teamsync/teamsync/internal/membership"
)

func TestAuditContextCarriesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)

	var actor auditctx.Actor
	r := gin.New()
	r.Use(AuditContext())
	r.GET("/public", func(c *gin.Context) {
		actor, _ = auditctx.FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		actor, _ = auditctx.FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	require.Equal(t, http.StatusNoContent, call(r, "/public", "").Code)
	require.Equal(t, "192.0.2.1", actor.IPAddress)
	require.Empty(t, actor.MemberID)

	token := issue(t, jwtSvc, "team-1", membership.RolePlayer)
	require.Equal(t, http.StatusNoContent, call(r, "/secure", token).Code)
	require.Equal(t, "member-123", actor.MemberID)
	require.Equal(t, "team-1", actor.TeamID)
	require.Equal(t, "192.0.2.1", actor.IPAddress)
}
