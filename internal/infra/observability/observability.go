// Package observability holds the Prometheus metrics for every AgroLoop
// service and a small in-memory recorder of recent vendor calls.
//
// Metrics are registered on the default registry through promauto, so the
// API's /metrics handler exposes them without further wiring.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agroloop/agroloop/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Vendor Call Recorder
// ═══════════════════════════════════════════════════════════════════════════

// Call is one completed advisory request.
type Call struct {
	Service   string               `json:"service"`
	Outcome   domain.VendorOutcome `json:"outcome"`
	Reason    string               `json:"reason,omitempty"`
	StartedAt time.Time            `json:"startedAt"`
	Duration  time.Duration        `json:"duration"`
}

// Recorder keeps the most recent calls in a ring buffer.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	maxCalls int
}

// DefaultMaxCalls bounds the recorder when no size is given.
const DefaultMaxCalls = 200

// NewRecorder creates a recorder holding at most max calls.
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = DefaultMaxCalls
	}
	return &Recorder{calls: make([]Call, 0, max), maxCalls: max}
}

// Observe records a finished call and updates the outcome metrics.
// A nil recorder only updates metrics.
func (r *Recorder) Observe(p domain.Provenance, started time.Time) {
	d := time.Since(started)
	AdvisoryRequests.WithLabelValues(p.Service, string(p.Outcome)).Inc()
	AdvisoryLatency.WithLabelValues(p.Service).Observe(float64(d.Milliseconds()))
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) >= r.maxCalls {
		r.calls = r.calls[1:]
	}
	r.calls = append(r.calls, Call{
		Service:   p.Service,
		Outcome:   p.Outcome,
		Reason:    p.Reason,
		StartedAt: started,
		Duration:  d,
	})
}

// Recent returns up to limit calls, newest last.
func (r *Recorder) Recent(limit int) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.calls) {
		limit = len(r.calls)
	}
	out := make([]Call, limit)
	copy(out, r.calls[len(r.calls)-limit:])
	return out
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Verification Metrics ───────────────────────────────────────────────────

// CodesIssued counts issued verification codes.
var CodesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "verification",
	Name:      "codes_issued_total",
	Help:      "Total verification codes issued.",
})

// CodeRedemptions counts redemption attempts by result (redeemed, simulated, not_found).
var CodeRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "verification",
	Name:      "redemptions_total",
	Help:      "Verification code redemption attempts by result.",
}, []string{"result"})

// CodesCleaned counts expired codes removed by cleanup.
var CodesCleaned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "verification",
	Name:      "codes_cleaned_total",
	Help:      "Total expired verification codes removed.",
})

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerAppends counts ledger entries by activity type.
var LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "ledger",
	Name:      "appends_total",
	Help:      "Total ledger entries appended by activity type.",
}, []string{"type"})

// CreditsAwarded counts eco-credits granted for waste logs.
var CreditsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "ledger",
	Name:      "credits_awarded_total",
	Help:      "Total eco-credits awarded.",
})

// CreditsSpent counts eco-credits spent on rewards.
var CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "ledger",
	Name:      "credits_spent_total",
	Help:      "Total eco-credits spent on rewards.",
})

// StorageErrors counts failed store operations by operation (read, write).
var StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "storage",
	Name:      "errors_total",
	Help:      "Failed key-value store operations.",
}, []string{"op"})

// ─── Advisory Metrics ───────────────────────────────────────────────────────

// AdvisoryRequests counts advisory answers by service and vendor outcome.
var AdvisoryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "advisory",
	Name:      "requests_total",
	Help:      "Advisory requests by serving backend and vendor outcome.",
}, []string{"service", "outcome"})

// AdvisoryLatency tracks end-to-end advisory latency.
var AdvisoryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "agroloop",
	Subsystem: "advisory",
	Name:      "latency_ms",
	Help:      "Advisory request latency in milliseconds.",
	Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 5000, 30000},
}, []string{"service"})

// ─── Session Metrics ────────────────────────────────────────────────────────

// SessionEvents counts identity events (signup, signin, signout, delete, failed).
var SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agroloop",
	Subsystem: "session",
	Name:      "events_total",
	Help:      "Identity events by kind.",
}, []string{"event"})
