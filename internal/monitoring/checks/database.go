package checks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings db within timeout and reports pool usage. A pool with every
// connection checked out is degraded: joins will queue behind it.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultDatabaseTimeout
	}

	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		start := time.Now()
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result := monitoring.ResultFromError(sqlDB.PingContext(probeCtx), time.Since(start))
		if result.Status != monitoring.StatusUp {
			return result
		}

		stats := sqlDB.Stats()
		result.Details = poolDetails(stats)
		if poolSaturated(stats) {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}

func poolDetails(stats sql.DBStats) string {
	limit := "unbounded"
	if stats.MaxOpenConnections > 0 {
		limit = fmt.Sprint(stats.MaxOpenConnections)
	}
	return fmt.Sprintf("%d/%s connections in use, %d waits", stats.InUse, limit, stats.WaitCount)
}

func poolSaturated(stats sql.DBStats) bool {
	return stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections
}
