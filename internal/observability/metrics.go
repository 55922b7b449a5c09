// Package observability exposes Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// VotesCast counts vote casts by ledger outcome ("failed" when rolled back).
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_votes_cast_total",
		Help: "Total number of vote casts by outcome",
	}, []string{"outcome"})

	// FriendTransitions counts friend graph mutations.
	FriendTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_friend_transitions_total",
		Help: "Total number of friend graph transitions",
	}, []string{"transition"})

	// UploadedBytes records the size of accepted uploads.
	UploadedBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agora_upload_bytes",
		Help:    "Size of accepted uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})
)

// RecordVote increments the vote counter for outcome.
func RecordVote(outcome string) {
	VotesCast.WithLabelValues(outcome).Inc()
}

// RecordFriendTransition increments the friend transition counter.
func RecordFriendTransition(transition string) {
	FriendTransitions.WithLabelValues(transition).Inc()
}
