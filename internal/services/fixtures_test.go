package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceFixture struct {
	db        *gorm.DB
	clock     *testClock
	bus       *events.Bus
	audit     *AuditService
	registry  *InviteRegistry
	roster    *TeamRoster
	teams     *TeamService
	admission *AdmissionService
}

func newServiceFixture(t *testing.T, registryOpts ...RegistryOption) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	bus := events.NewBus()

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	opts := append([]RegistryOption{WithRegistryClock(clock.Now)}, registryOpts...)
	registry, err := NewInviteRegistry(db, opts...)
	require.NoError(t, err)

	roster, err := NewTeamRoster(db, bus, WithRosterClock(clock.Now), WithRosterAudit(audit))
	require.NoError(t, err)

	teams, err := NewTeamService(db, roster, audit)
	require.NoError(t, err)

	admission, err := NewAdmissionService(db, registry, roster, bus,
		WithJoinBaseURL("https://teamsync.test/"),
		WithAdmissionAudit(audit),
		WithAdmissionClock(clock.Now),
	)
	require.NoError(t, err)

	return &serviceFixture{
		db:        db,
		clock:     clock,
		bus:       bus,
		audit:     audit,
		registry:  registry,
		roster:    roster,
		teams:     teams,
		admission: admission,
	}
}

func (f *serviceFixture) createTeam(t *testing.T, tier membership.Tier) (*models.Team, *models.Member) {
	t.Helper()

	team, owner, err := f.teams.Create(context.Background(), CreateTeamInput{
		Name:          "Riverside Hawks",
		Sport:         "soccer",
		Tier:          string(tier),
		OwnerName:     "Coach Taylor",
		OwnerEmail:    "coach@hawks.test",
		OwnerPassword: "whistle-2024",
	})
	require.NoError(t, err)
	return team, owner
}

// seedMembers adds n members with a placeholder hash, skipping bcrypt.
func (f *serviceFixture) seedMembers(t *testing.T, teamID string, role membership.Role, n int) []*models.Member {
	t.Helper()

	out := make([]*models.Member, 0, n)
	for i := 0; i < n; i++ {
		member := &models.Member{
			TeamID:       teamID,
			Name:         fmt.Sprintf("%s %d", role, i),
			Email:        fmt.Sprintf("%s-%d@hawks.test", role, i),
			PasswordHash: "seeded",
			Role:         role,
		}
		require.NoError(t, f.roster.AddMember(context.Background(), member))
		out = append(out, member)
	}
	return out
}

func (f *serviceFixture) reloadInvite(t *testing.T, id string) models.Invite {
	t.Helper()

	var invite models.Invite
	require.NoError(t, f.db.Take(&invite, "id = ?", id).Error)
	return invite
}
