package maintenance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Job names as reported by Jobs.
const (
	JobInvites = "invites"
	JobAudit   = "audit"
	JobCache   = "cache"
)

// JobStatus summarises the recent runs of one housekeeping job.
type JobStatus struct {
	Job                 string        `json:"job"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalRuns           int           `json:"total_runs"`
}

type jobTracker struct {
	mu   sync.Mutex
	jobs map[string]*JobStatus
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]*JobStatus)}
}

func (t *jobTracker) register(job string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &JobStatus{Job: job}
	}
}

func (t *jobTracker) run(ctx context.Context, job string, fn func(context.Context) error) error {
	t.register(job)

	start := time.Now()
	err := fn(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.jobs[job]
	status.LastRunAt = start
	status.LastDuration = time.Since(start)
	status.TotalRuns++
	if err != nil {
		status.LastError = err.Error()
		status.ConsecutiveFailures++
	} else {
		status.LastError = ""
		status.ConsecutiveFailures = 0
	}
	return err
}

func (t *jobTracker) snapshot() []JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]JobStatus, 0, len(t.jobs))
	for _, status := range t.jobs {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
