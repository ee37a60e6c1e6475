package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by method (password|google|github) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// TokensIssued counts issued single-use tokens by kind.
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_tokens_issued_total",
			Help: "Total number of single-use tokens issued",
		},
		[]string{"kind"},
	)

	// TokenRedemptions counts redemption attempts by kind and outcome
	// (success|not_found|expired|consumed).
	TokenRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_token_redemptions_total",
			Help: "Total number of token redemption attempts",
		},
		[]string{"kind", "result"},
	)

	// TeamOperations counts team lifecycle transitions by operation and result.
	TeamOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_team_operations_total",
			Help: "Total number of team lifecycle operations",
		},
		[]string{"operation", "result"},
	)

	// DeliveryFailures counts swallowed notification and mail failures by channel.
	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_delivery_failures_total",
			Help: "Notification and email deliveries that failed and were discarded",
		},
		[]string{"channel"},
	)

	// ConversationSyncParticipants tracks participants inserted by conversation sync.
	ConversationSyncParticipants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortexis_conversation_sync_participants_total",
			Help: "Participants added by conversation sync",
		},
		[]string{"type"},
	)

	// PendingInvitations reports unconsumed, unexpired team invitations.
	PendingInvitations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vortexis_pending_team_invitations",
			Help: "Number of pending team invitations",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vortexis_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the result label used by the counters.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
