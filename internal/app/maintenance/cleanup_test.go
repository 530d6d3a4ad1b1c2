package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/cache"
	testutil "github.com/teamsync/teamsync/internal/database/testutil"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	"github.com/teamsync/teamsync/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()
	clock := &fixedClock{current: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)}

	registry, err := services.NewInviteRegistry(db, services.WithRegistryClock(clock.Now))
	require.NoError(t, err)
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	store := cache.NewDatabaseStore(db).WithClock(clock.Now)

	expiring, err := registry.CreateInvite(ctx, services.CreateInviteInput{TeamID: "team-1", Role: membership.RolePlayer, ExpiresIn: time.Hour})
	require.NoError(t, err)
	live, err := registry.CreateInvite(ctx, services.CreateInviteInput{TeamID: "team-1", Role: membership.RolePlayer})
	require.NoError(t, err)
	stale, err := registry.CreateInvite(ctx, services.CreateInviteInput{TeamID: "team-1", Role: membership.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Invite{}).Where("id = ?", stale.ID).
		Updates(map[string]any{"active": false, "updated_at": clock.Now().AddDate(0, 0, -40)}).Error)

	require.NoError(t, auditSvc.Log(ctx, services.AuditEntry{TeamID: "team-1", Action: "invite.issue", Result: services.AuditResultSuccess}))
	require.NoError(t, db.Model(&models.AuditLog{}).Where("1 = 1").
		Update("created_at", time.Now().AddDate(0, 0, -100)).Error)

	_, _, err = store.IncrementWithTTL(ctx, "ratelimit:join", time.Minute)
	require.NoError(t, err)

	clock.current = clock.current.Add(2 * time.Hour)

	c := NewCleaner(registry, auditSvc,
		WithCache(store),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(ctx))

	var reloaded models.Invite
	require.NoError(t, db.First(&reloaded, "id = ?", expiring.ID).Error)
	require.False(t, reloaded.Active)

	var liveReloaded models.Invite
	require.NoError(t, db.First(&liveReloaded, "id = ?", live.ID).Error)
	require.True(t, liveReloaded.Active)

	var count int64
	require.NoError(t, db.Model(&models.Invite{}).Where("id = ?", stale.ID).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, db.Model(&models.RateCounter{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	registry, err := services.NewInviteRegistry(db)
	require.NoError(t, err)

	c := NewCleaner(registry, nil, WithInviteSchedule("not a schedule"))
	require.Error(t, c.Start())
}

func TestCleanerWithoutDependencies(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}

func TestCleanerTracksJobRuns(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	registry, err := services.NewInviteRegistry(db)
	require.NoError(t, err)
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	c := NewCleaner(registry, auditSvc, WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))))
	require.NoError(t, c.RunOnce(context.Background()))
	require.NoError(t, c.RunOnce(context.Background()))

	jobs := c.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, JobAudit, jobs[0].Job)
	require.Equal(t, JobInvites, jobs[1].Job)
	for _, job := range jobs {
		require.Equal(t, 2, job.TotalRuns)
		require.Zero(t, job.ConsecutiveFailures)
		require.Empty(t, job.LastError)
		require.False(t, job.LastRunAt.IsZero())
	}
}

func TestCleanerRecordsFailures(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	registry, err := services.NewInviteRegistry(db)
	require.NoError(t, err)

	c := NewCleaner(registry, nil)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.Error(t, c.RunOnce(context.Background()))
	jobs := c.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, 1, jobs[0].ConsecutiveFailures)
	require.NotEmpty(t, jobs[0].LastError)
}
