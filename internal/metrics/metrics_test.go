package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CallAccepted(RouteVerification)
	m.CallAccepted(RouteVerification)
	m.CallAccepted(RouteTwoPlayer)
	m.VerificationResolved(true)
	m.VerificationResolved(false)
	m.VerificationExpired()
	m.EventConfirmed("host_review")
	m.PenaltyApplied("dismiss", 3)
	m.ActionDropped("host:lock")

	if got := testutil.ToFloat64(m.calls.WithLabelValues(RouteVerification)); got != 2 {
		t.Errorf("expected 2 verification calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.verificationsResolved.WithLabelValues("approved")); got != 1 {
		t.Errorf("expected 1 approval, got %v", got)
	}
	if got := testutil.ToFloat64(m.verificationsExpired); got != 1 {
		t.Errorf("expected 1 expiry, got %v", got)
	}
	if got := testutil.ToFloat64(m.penalties.WithLabelValues("dismiss")); got != 3 {
		t.Errorf("expected 3 penalties, got %v", got)
	}
	if got := testutil.ToFloat64(m.actionsDropped.WithLabelValues("host:lock")); got != 1 {
		t.Errorf("expected 1 dropped action, got %v", got)
	}
}

func TestMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CallAccepted(RouteTwoPlayer)
	m.VerificationResolved(true)
	m.EventConfirmed("consensus")
	m.PenaltyApplied("consensus", 1)
	m.ActionDropped("call")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 6 {
		t.Errorf("expected 6 metric families, got %d", len(families))
	}
}

// TestMetrics_NilSafe tests that a nil collector can be used freely
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.CallAccepted(RouteTwoPlayer)
	m.VerificationResolved(true)
	m.VerificationExpired()
	m.EventConfirmed("consensus")
	m.PenaltyApplied("dismiss", 1)
	m.ActionDropped("call")
}
