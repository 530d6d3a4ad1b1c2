package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitesIssued counts invite codes created, by role.
	InvitesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_invites_issued_total",
			Help: "Total number of invite codes issued",
		},
		[]string{"role"},
	)

	// Redemptions counts join attempts by outcome (ok|invalid_or_expired_code|role_capacity_full|validation_error|error).
	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_redemptions_total",
			Help: "Total number of invite redemption attempts",
		},
		[]string{"result"},
	)

	// CapacityRejections counts admissions refused by the tier gate.
	CapacityRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_capacity_rejections_total",
			Help: "Admissions refused because the tier limit for the role was reached",
		},
		[]string{"tier", "role"},
	)

	// MembersRemoved counts roster removals.
	MembersRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamsync_members_removed_total",
			Help: "Total number of members removed from rosters",
		},
	)

	// InvitesSwept counts invites touched by the maintenance sweep, by action (deactivated|purged).
	InvitesSwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamsync_invites_swept_total",
			Help: "Invites deactivated or purged by the maintenance sweep",
		},
		[]string{"action"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamsync_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
