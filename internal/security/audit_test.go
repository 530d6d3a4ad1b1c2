package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/app"
	iauth "github.com/teamsync/teamsync/internal/auth"
	testutil "github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
)

const strongSecret = "0123456789abcdef0123456789abcdef0123456789abcdef"

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %s not reported", id)
	return Check{}
}

func hardenedConfig() *app.Config {
	return &app.Config{
		Database: app.DatabaseConfig{Driver: "postgres", Host: "db"},
		Invites:  app.InviteConfig{BaseURL: "https://teamsync.example"},
		RateLimit: app.RateLimitConfig{
			Enabled: true,
			Store:   "database",
			Join:    app.LimitRule{Requests: 10, Window: time.Minute},
		},
	}
}

func TestAuditorRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	team := &models.Team{Name: "Hawks", Tier: membership.TierFree, Status: models.TeamStatusActive}
	require.NoError(t, db.Create(team).Error)
	owner := &models.Member{TeamID: team.ID, Name: "Coach", Email: "coach@example.com", PasswordHash: "hashed", Role: membership.RoleCoach}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Model(team).Update("owner_id", owner.ID).Error)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: strongSecret, Issuer: "test-suite", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	auditor := NewAuditor(db, jwtSvc, hardenedConfig())
	fixed := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	auditor.WithClock(func() time.Time { return fixed })

	result := auditor.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 7)
	require.Equal(t, 7, result.Summary[string(StatusPass)])
	require.False(t, result.Failed())
}

func TestAuditorFlagsWeakSettings(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(&models.Team{Name: "Orphans", Tier: membership.TierFree, Status: models.TeamStatusActive}).Error)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "short", AccessTokenTTL: 30 * 24 * time.Hour})
	require.NoError(t, err)

	cfg := &app.Config{
		Database: app.DatabaseConfig{Driver: "sqlite", DSN: "file:x?mode=memory"},
		Invites:  app.InviteConfig{BaseURL: "http://teamsync.example"},
		Realtime: app.RealtimeConfig{AllowedOrigins: []string{"*.example"}},
	}

	result := NewAuditor(db, jwtSvc, cfg).Run(context.Background())
	require.True(t, result.Failed())

	require.Equal(t, StatusFail, findCheck(t, result, "jwt_secret_strength").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "member_token_ttl").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "invite_base_url").Status)
	require.Equal(t, StatusFail, findCheck(t, result, "join_rate_limit").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "realtime_origins").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "database_persistence").Status)

	owners := findCheck(t, result, "team_owners")
	require.Equal(t, StatusWarn, owners.Status)
	require.Contains(t, owners.Message, "1 teams")
}

func TestAuditorWithoutDependencies(t *testing.T) {
	result := NewAuditor(nil, nil, nil).Run(context.Background())
	require.Len(t, result.Checks, 7)
	require.Equal(t, 7, result.Summary[string(StatusWarn)])
}

func TestAuditorRejectsRelativeBaseURL(t *testing.T) {
	cfg := hardenedConfig()
	cfg.Invites.BaseURL = "/join"

	result := NewAuditor(nil, nil, cfg).Run(context.Background())
	require.Equal(t, StatusFail, findCheck(t, result, "invite_base_url").Status)
}

func TestRealtimeOriginsCheck(t *testing.T) {
	require.Equal(t, StatusPass, realtimeOrigins([]string{"https://app.teamsync.example"}).Status)

	open := realtimeOrigins([]string{"https://app.teamsync.example", "*"})
	require.Equal(t, StatusWarn, open.Status)
	require.Contains(t, open.Message, "Any website")

	partial := realtimeOrigins([]string{"*.teamsync.example"})
	require.Equal(t, StatusWarn, partial.Status)
	require.Equal(t, map[string]any{"origins": []string{"*.teamsync.example"}}, partial.Details)
}
