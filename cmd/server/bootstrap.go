package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/api"
	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/app/maintenance"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/cache"
	"github.com/teamsync/teamsync/internal/database"
	"github.com/teamsync/teamsync/internal/monitoring/checks"
	"github.com/teamsync/teamsync/internal/security"
	"github.com/teamsync/teamsync/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Services *api.Services
	Cleaner  *maintenance.Cleaner
	// Counters backs rate limiting; nil when throttling is off.
	Counters cache.Store
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Counters = newCounterStore(cfg.RateLimit, stack.DB)
	log.Info("rate limiting configured",
		zap.Bool("enabled", cfg.RateLimit.Enabled),
		zap.String("store", cfg.RateLimit.Store),
	)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Services, err = api.NewServices(stack.DB, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	logSecurityAudit(ctx, log, security.NewAuditor(stack.DB, jwtSvc, cfg))

	if cfg.Maintenance.Enabled {
		cleanerOpts := []maintenance.Option{
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
			maintenance.WithInviteRetention(cfg.Invites.Retention),
			maintenance.WithInviteSchedule(cfg.Maintenance.InviteSchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		}
		if stack.Counters != nil {
			cleanerOpts = append(cleanerOpts, maintenance.WithCache(stack.Counters))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Services.Registry, stack.Services.Audit, cleanerOpts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	var routerOpts []api.RouterOption
	if stack.Cleaner != nil {
		routerOpts = append(routerOpts, api.WithHealthChecks(checks.Maintenance(stack.Cleaner, cfg.Monitoring.Health.MaintenanceMaxAge)))
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Services, stack.Counters, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// logSecurityAudit surfaces weak settings at startup without blocking it.
func logSecurityAudit(ctx context.Context, log *zap.Logger, auditor *security.Auditor) {
	result := auditor.Run(ctx)
	for _, check := range result.Checks {
		fields := []zap.Field{zap.String("check", check.ID), zap.String("remediation", check.Remediation)}
		switch check.Status {
		case security.StatusFail:
			log.Error(check.Message, fields...)
		case security.StatusWarn:
			log.Warn(check.Message, fields...)
		}
	}
}

// newCounterStore picks the rate limit backend. Database counters are
// shared by every replica; memory counters are per process.
func newCounterStore(cfg app.RateLimitConfig, db *gorm.DB) cache.Store {
	if !cfg.Enabled {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Store), "database") {
		return cache.NewDatabaseStore(db)
	}
	return cache.NewMemoryStore()
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
