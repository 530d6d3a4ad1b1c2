package checks

import (
	"context"
	"strings"
	"time"

	"github.com/teamsync/teamsync/internal/app/maintenance"
	"github.com/teamsync/teamsync/internal/monitoring"
)

const defaultMaintenanceMaxAge = 26 * time.Hour

// JobReporter is satisfied by the maintenance cleaner.
type JobReporter interface {
	Jobs() []maintenance.JobStatus
}

// Maintenance degrades when a housekeeping job keeps failing or has not
// completed within maxAge. Invite expiry never depends on these jobs, so
// the worst outcome is degraded.
func Maintenance(reporter JobReporter, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string

		for _, job := range reporter.Jobs() {
			switch {
			case job.TotalRuns == 0:
				// scheduled but not yet due
			case job.ConsecutiveFailures > 0:
				status = monitoring.StatusDegraded
				problems = append(problems, job.Job+": "+job.LastError)
			case now.Sub(job.LastRunAt) > maxAge:
				status = monitoring.StatusDegraded
				problems = append(problems, job.Job+": last ran "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
