// Package metrics exposes game engine counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parlaywatch"

// Call routes
const (
	RouteTwoPlayer    = "two_player"
	RouteVerification = "verification"
)

// Metrics holds the engine counters
type Metrics struct {
	calls                 *prometheus.CounterVec
	verificationsResolved *prometheus.CounterVec
	verificationsExpired  prometheus.Counter
	eventsConfirmed       *prometheus.CounterVec
	penalties             *prometheus.CounterVec
	actionsDropped        *prometheus.CounterVec
}

// New creates the counters and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Calls accepted, by consensus route.",
		}, []string{"route"}),
		verificationsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_resolved_total",
			Help:      "Peer verifications resolved, by outcome.",
		}, []string{"outcome"}),
		verificationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_expired_total",
			Help:      "Peer verifications dropped unresolved after their TTL.",
		}),
		eventsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_confirmed_total",
			Help:      "Confirmed events, by source.",
		}, []string{"source"}),
		penalties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalties_total",
			Help:      "Penalties applied to players, by source.",
		}, []string{"source"}),
		actionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dropped_total",
			Help:      "Actions silently ignored, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(
		m.calls,
		m.verificationsResolved,
		m.verificationsExpired,
		m.eventsConfirmed,
		m.penalties,
		m.actionsDropped,
	)
	return m
}

// CallAccepted counts a persisted call
func (m *Metrics) CallAccepted(route string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(route).Inc()
}

// VerificationResolved counts a resolved peer verification
func (m *Metrics) VerificationResolved(approved bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.verificationsResolved.WithLabelValues(outcome).Inc()
}

// VerificationExpired counts a tally dropped on expiry
func (m *Metrics) VerificationExpired() {
	if m == nil {
		return
	}
	m.verificationsExpired.Inc()
}

// EventConfirmed counts a confirmed event
func (m *Metrics) EventConfirmed(source string) {
	if m == nil {
		return
	}
	m.eventsConfirmed.WithLabelValues(source).Inc()
}

// PenaltyApplied counts penalized players
func (m *Metrics) PenaltyApplied(source string, players int) {
	if m == nil {
		return
	}
	m.penalties.WithLabelValues(source).Add(float64(players))
}

// ActionDropped counts an ignored action
func (m *Metrics) ActionDropped(action string) {
	if m == nil {
		return
	}
	m.actionsDropped.WithLabelValues(action).Inc()
}
