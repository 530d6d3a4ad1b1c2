package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/internal/cache"
	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/logger"
	"github.com/teamsync/teamsync/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultInviteRetention    = 30 * 24 * time.Hour
	defaultInviteSpec         = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultCacheSpec          = "*/10 * * * *"
)

// Cleaner runs background housekeeping: it deactivates expired invites,
// purges long-dead ones, prunes the audit log and drops stale rate counters.
// Redemption never waits for it; invite expiry is checked at read time.
type Cleaner struct {
	invites         *services.InviteRegistry
	audit           *services.AuditService
	cache           cache.Store
	cron            *cron.Cron
	log             *zap.Logger
	auditRetention  int
	inviteRetention time.Duration

	inviteSchedule string
	auditSchedule  string
	cacheSchedule  string

	tracker *jobTracker
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithCache adds a cache store whose expired entries are purged.
func WithCache(store cache.Store) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = store
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithInviteRetention adjusts how long deactivated invites are kept.
func WithInviteRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.inviteRetention = d
		}
	}
}

// WithInviteSchedule overrides the cron specification for the invite sweep.
func WithInviteSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.inviteSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(invites *services.InviteRegistry, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invites:         invites,
		audit:           audit,
		auditRetention:  defaultAuditRetentionDays,
		inviteRetention: defaultInviteRetention,
		inviteSchedule:  defaultInviteSpec,
		auditSchedule:   defaultAuditSpec,
		cacheSchedule:   defaultCacheSpec,
		log:             logger.WithModule("maintenance"),
		tracker:         newJobTracker(),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.invites != nil || c.audit != nil || c.cache != nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	for _, job := range c.jobs() {
		job := job
		c.tracker.register(job.name)
		if _, err := c.cron.AddFunc(job.schedule, func() {
			if err := c.tracker.run(context.Background(), job.name, job.fn); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", job.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, job := range c.jobs() {
		errs = multierr.Append(errs, c.tracker.run(ctx, job.name, job.fn))
	}
	return errs
}

// Jobs reports the status of every configured job.
func (c *Cleaner) Jobs() []JobStatus {
	return c.tracker.snapshot()
}

type scheduledJob struct {
	name     string
	schedule string
	fn       func(context.Context) error
}

func (c *Cleaner) jobs() []scheduledJob {
	var jobs []scheduledJob
	if c.invites != nil {
		jobs = append(jobs, scheduledJob{JobInvites, c.inviteSchedule, c.cleanInvites})
	}
	if c.audit != nil {
		jobs = append(jobs, scheduledJob{JobAudit, c.auditSchedule, c.cleanAudit})
	}
	if c.cache != nil {
		jobs = append(jobs, scheduledJob{JobCache, c.cacheSchedule, c.cleanCache})
	}
	return jobs
}

func (c *Cleaner) cleanInvites(ctx context.Context) error {
	var errs error

	swept, err := c.invites.SweepExpired(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if swept > 0 {
		metrics.InvitesSwept.WithLabelValues("deactivated").Add(float64(swept))
		c.log.Info("expired invites deactivated", zap.Int64("count", swept))
	}

	purged, err := c.invites.PurgeInactive(ctx, c.inviteRetention)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if purged > 0 {
		metrics.InvitesSwept.WithLabelValues("purged").Add(float64(purged))
		c.log.Info("inactive invites purged", zap.Int64("count", purged))
	}

	return errs
}

func (c *Cleaner) cleanAudit(ctx context.Context) error {
	removed, err := c.audit.CleanupOlderThan(ctx, c.auditRetention)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("count", removed))
	}
	return nil
}

func (c *Cleaner) cleanCache(ctx context.Context) error {
	_, err := c.cache.PurgeExpired(ctx)
	return err
}
