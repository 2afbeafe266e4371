package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcomes
const (
	OutcomeConfirmed      = "confirmed"
	OutcomeReplayed       = "replayed"
	OutcomePaymentFailed  = "payment_failed"
	OutcomeRejected       = "rejected"
	OutcomeReconciliation = "reconciliation_required"
)

var (
	// ReconciliationRequired counts charges taken without a persisted booking.
	// Any increase needs an operator.
	ReconciliationRequired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reconciliation_required_total",
		Help: "Charged booking attempts that could not be persisted",
	}, []string{"source"})

	// Commits counts commit calls by outcome
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_commits_total",
		Help: "Booking commit calls by outcome",
	}, []string{"outcome"})

	// PaymentDuration observes gateway charge latency
	PaymentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_payment_duration_seconds",
		Help:    "Time spent charging the payment gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// SweptAttempts counts stale attempts handled by the sweeper
	SweptAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_attempts_swept_total",
		Help: "Stale booking attempts closed by the sweeper",
	}, []string{"result"})
)
