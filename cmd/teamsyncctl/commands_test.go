package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/api"
	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/models"
	"github.com/teamsync/teamsync/internal/security"
	"github.com/teamsync/teamsync/internal/services"
)

type fixture struct {
	cli  *cli
	out  *bytes.Buffer
	svc  *api.Services
	team *models.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	cfg := &app.Config{
		Invites:     app.InviteConfig{BaseURL: "https://teamsync.test", Retention: time.Hour},
		Maintenance: app.MaintenanceConfig{AuditRetentionDays: 30},
	}
	svc, err := api.NewServices(db, cfg)
	require.NoError(t, err)

	team, _, err := svc.Teams.Create(context.Background(), services.CreateTeamInput{
		Name:          "Hawks",
		Sport:         "basketball",
		OwnerName:     "Coach Carter",
		OwnerEmail:    "carter@hawks.test",
		OwnerPassword: "whistle-2024",
	})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	auditor := security.NewAuditor(db, nil, cfg)
	return &fixture{cli: newCLI(svc, cfg, auditor, out), out: out, svc: svc, team: team}
}

func (f *fixture) run(t *testing.T, args ...string) string {
	t.Helper()
	f.out.Reset()
	require.NoError(t, f.cli.dispatch(context.Background(), args))
	return f.out.String()
}

func TestTeamCommands(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "team", "list")
	require.Contains(t, out, "Hawks")
	require.Contains(t, out, "free")

	out = f.run(t, "team", "set-tier", "--team", f.team.ID, "--tier", "club")
	require.Contains(t, out, "club plan")

	err := f.cli.dispatch(context.Background(), []string{"team", "set-tier", "--team", f.team.ID, "--tier", "gold"})
	require.Error(t, err)
}

func TestRosterCommand(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "roster", "--team", f.team.ID)
	require.Contains(t, out, "players 0/20, admins 1/1")
	require.Contains(t, out, "carter@hawks.test")
	require.Contains(t, out, "coach")

	require.Error(t, f.cli.dispatch(context.Background(), []string{"roster"}))
}

func TestInviteCommands(t *testing.T) {
	f := newFixture(t)

	var copied string
	original := copyToClipboard
	copyToClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { copyToClipboard = original })

	out := f.run(t, "invite", "create", "--team", f.team.ID, "--role", "player", "--max-uses", "2", "--copy")
	require.Contains(t, out, "link copied to clipboard")
	require.True(t, strings.HasPrefix(copied, "https://teamsync.test/join/"))

	invites, err := f.svc.Registry.GetActiveInvites(context.Background(), f.team.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Equal(t, 2, invites[0].MaxUses)

	out = f.run(t, "invite", "list", "--team", f.team.ID)
	require.Contains(t, out, invites[0].Code)
	require.Contains(t, out, "0/2")

	out = f.run(t, "invite", "revoke", "--id", invites[0].ID)
	require.Contains(t, out, "deactivated")

	out = f.run(t, "invite", "list", "--team", f.team.ID, "--status", "inactive")
	require.Contains(t, out, string(models.InviteStateInactive))

	// the coach already fills the only admin seat on free
	err = f.cli.dispatch(context.Background(), []string{"invite", "create", "--team", f.team.ID, "--role", "admin"})
	require.ErrorIs(t, err, services.ErrRoleCapacityFull)
}

func TestActivityCommand(t *testing.T) {
	f := newFixture(t)
	f.run(t, "team", "set-tier", "--team", f.team.ID, "--tier", "pro")

	out := f.run(t, "activity", "--team", f.team.ID)
	require.Contains(t, out, "team.create")
	require.Contains(t, out, "team.tier")
	require.NotContains(t, out, "more:")

	out = f.run(t, "activity", "--team", f.team.ID, "--limit", "1")
	require.Contains(t, out, "team.tier")
	require.NotContains(t, out, "team.create")
	require.Contains(t, out, "more: --before")

	out = f.run(t, "activity", "--team", f.team.ID, "--action", "invite.*")
	require.NotContains(t, out, "team.")

	require.Error(t, f.cli.dispatch(context.Background(), []string{"activity"}))
}

func TestMaintenanceAndUnknownCommands(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "maintenance", "run")
	require.Contains(t, out, "maintenance complete")

	err := f.cli.dispatch(context.Background(), []string{"invite", "frobnicate"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")
}

func TestDoctorCommand(t *testing.T) {
	f := newFixture(t)

	err := f.cli.dispatch(context.Background(), []string{"doctor"})
	require.ErrorIs(t, err, errDoctorFailed)

	out := f.out.String()
	require.Contains(t, out, "join_rate_limit")
	require.Contains(t, out, "PASS")
	require.Contains(t, out, "- join_rate_limit: Enable ratelimit")
}

func TestRunPrintsHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, &out))
	require.Contains(t, out.String(), "invite create")
	require.Contains(t, out.String(), "doctor")
}
