package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/teamsync/teamsync/internal/auditctx"
	"github.com/teamsync/teamsync/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating audit failures.
// Fields left empty are taken from the request actor in ctx.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.ActorID == "" && (entry.TeamID == "" || entry.TeamID == actor.TeamID) {
			entry.ActorID = actor.MemberID
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
