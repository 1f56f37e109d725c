package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the custody service.
type Metrics struct {
	EntriesAppended    *prometheus.CounterVec
	ApprovalsResolved  *prometheus.CounterVec
	ChainVerifications *prometheus.CounterVec
	ReceiptsIssued     prometheus.Counter
	LockWaitSeconds    prometheus.Histogram
	LockTimeouts       prometheus.Counter
}

// New registers all metrics with reg. Tests pass a fresh registry so suites
// never collide on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_entries_appended_total",
			Help: "Custody entries appended, by action and initial status.",
		}, []string{"action", "status"}),
		ApprovalsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_approvals_resolved_total",
			Help: "Approval gate decisions, by outcome.",
		}, []string{"decision"}),
		ChainVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_chain_verifications_total",
			Help: "Hash chain verification runs, by result.",
		}, []string{"result"}),
		ReceiptsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_receipts_issued_total",
			Help: "Custody receipts generated.",
		}),
		LockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_lock_wait_seconds",
			Help:    "Time spent waiting for a per-item ledger lock.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		LockTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_lock_timeouts_total",
			Help: "Custody operations rejected because the per-item lock wait timed out.",
		}),
	}
}

// ObserveLockWait records one lock acquisition wait.
func (m *Metrics) ObserveLockWait(d time.Duration) {
	m.LockWaitSeconds.Observe(d.Seconds())
}
