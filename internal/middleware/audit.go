package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/auditctx"
)

// AuditContext stores the client address and agent on the request context
// so services can attribute audit entries without a gin dependency.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
