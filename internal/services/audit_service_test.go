package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/auditctx"
	"github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/models"
)

func newTestAuditService(t *testing.T) *AuditService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	return svc
}

func TestAuditServiceTeamActivityFilters(t *testing.T) {
	svc := newTestAuditService(t)
	ctx := context.Background()

	entries := []AuditEntry{
		{TeamID: "team-1", ActorID: "coach-1", Action: "invite.issue", Resource: "invites", Result: AuditResultSuccess, Metadata: map[string]any{"role": "player"}},
		{TeamID: "team-1", Action: "invite.redeem", Resource: "invites", Result: AuditResultDenied},
		{TeamID: "team-1", ActorID: "coach-1", Action: "member.remove", Resource: "members", Result: AuditResultSuccess},
		{TeamID: "team-2", Action: "invite.issue", Result: AuditResultSuccess},
	}
	for _, entry := range entries {
		require.NoError(t, svc.Log(ctx, entry))
	}

	page, err := svc.TeamActivity(ctx, "team-1", ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	require.Empty(t, page.NextCursor)
	require.Equal(t, "member.remove", page.Entries[0].Action)
	require.Equal(t, "invite.issue", page.Entries[2].Action)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(page.Entries[2].Metadata, &metadata))
	require.Equal(t, "player", metadata["role"])

	page, err = svc.TeamActivity(ctx, "team-1", ActivityQuery{Action: "invite.*"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	page, err = svc.TeamActivity(ctx, "team-1", ActivityQuery{Result: AuditResultDenied})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Nil(t, page.Entries[0].ActorID)

	page, err = svc.TeamActivity(ctx, "team-1", ActivityQuery{ActorID: "coach-1", Action: "member.remove"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	_, err = svc.TeamActivity(ctx, " ", ActivityQuery{})
	require.Error(t, err)
}

func TestAuditServiceTeamActivityPages(t *testing.T) {
	svc := newTestAuditService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Log(ctx, AuditEntry{
			TeamID:   "team-1",
			Action:   "chat.post",
			Result:   AuditResultSuccess,
			Metadata: map[string]any{"seq": i},
		}))
	}

	var seen []float64
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		page, err := svc.TeamActivity(ctx, "team-1", ActivityQuery{Limit: 2, Before: cursor})
		require.NoError(t, err)
		for _, entry := range page.Entries {
			var metadata map[string]float64
			require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
			seen = append(seen, metadata["seq"])
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	require.Equal(t, []float64{4, 3, 2, 1, 0}, seen)
}

func TestAuditServiceRejectsIncompleteEntries(t *testing.T) {
	svc := newTestAuditService(t)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: AuditResultSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "team.create"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.AuditLog{
		Action:    "old.action",
		Result:    AuditResultSuccess,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -10),
	}).Error)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "new.action", Result: AuditResultSuccess}))

	rows, err := svc.CleanupOlderThan(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}

func TestRecordAuditUsesRequestActor(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		MemberID:  "admin-7",
		TeamID:    "team-1",
		IPAddress: "198.51.100.4",
		UserAgent: "teamsync-web",
	})

	recordAudit(svc, ctx, AuditEntry{TeamID: "team-1", Action: "member.remove", Result: AuditResultSuccess})
	// an actor from another team is never credited
	recordAudit(svc, ctx, AuditEntry{TeamID: "team-9", Action: "invite.redeem", Result: AuditResultSuccess})

	var removed models.AuditLog
	require.NoError(t, db.Take(&removed, "action = ?", "member.remove").Error)
	require.Equal(t, "admin-7", *removed.ActorID)
	require.Equal(t, "198.51.100.4", removed.IPAddress)
	require.Equal(t, "teamsync-web", removed.UserAgent)

	var redeemed models.AuditLog
	require.NoError(t, db.Take(&redeemed, "action = ?", "invite.redeem").Error)
	require.Nil(t, redeemed.ActorID)
	require.Equal(t, "198.51.100.4", redeemed.IPAddress)
}
