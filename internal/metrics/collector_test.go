package sessionmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	sessionmetrics "github.com/kestrelnet/dpsession/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	if c.Peers == nil {
		t.Error("Peers is nil")
	}
	if c.MessagesSent == nil {
		t.Error("MessagesSent is nil")
	}
	if c.MessagesReceived == nil {
		t.Error("MessagesReceived is nil")
	}
	if c.AckLatency == nil {
		t.Error("AckLatency is nil")
	}
	if c.EnumResponses == nil {
		t.Error("EnumResponses is nil")
	}
	if c.JoinFailures == nil {
		t.Error("JoinFailures is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestRegisterUnregisterPeer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.RegisterPeer("arena")

	val := gaugeValue(t, c.Peers, "arena")
	if val != 1 {
		t.Errorf("after RegisterPeer: peers gauge = %v, want 1", val)
	}

	c.RegisterPeer("arena")
	val = gaugeValue(t, c.Peers, "arena")
	if val != 2 {
		t.Errorf("after second RegisterPeer: peers gauge = %v, want 2", val)
	}

	c.UnregisterPeer("arena")
	val = gaugeValue(t, c.Peers, "arena")
	if val != 1 {
		t.Errorf("after UnregisterPeer: peers gauge = %v, want 1", val)
	}
}

func TestMessageCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.IncMessagesSent("arena", "MESSAGE")
	c.IncMessagesSent("arena", "MESSAGE")
	c.IncMessagesSent("arena", "MESSAGE")

	val := counterValue(t, c.MessagesSent, "arena", "MESSAGE")
	if val != 3 {
		t.Errorf("MessagesSent = %v, want 3", val)
	}

	c.IncMessagesReceived("arena", "MESSAGE")
	c.IncMessagesReceived("arena", "MESSAGE")

	val = counterValue(t, c.MessagesReceived, "arena", "MESSAGE")
	if val != 2 {
		t.Errorf("MessagesReceived = %v, want 2", val)
	}
}

func TestEnumResponses(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.IncEnumResponses("arena")
	c.IncEnumResponses("arena")

	val := counterValue(t, c.EnumResponses, "arena")
	if val != 2 {
		t.Errorf("EnumResponses = %v, want 2", val)
	}
}

func TestJoinFailures(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.IncJoinFailures("arena", "SESSION_FULL")
	c.IncJoinFailures("arena", "SESSION_FULL")
	c.IncJoinFailures("arena", "PASSWORD_MISMATCH")

	val := counterValue(t, c.JoinFailures, "arena", "SESSION_FULL")
	if val != 2 {
		t.Errorf("JoinFailures(SESSION_FULL) = %v, want 2", val)
	}

	val = counterValue(t, c.JoinFailures, "arena", "PASSWORD_MISMATCH")
	if val != 1 {
		t.Errorf("JoinFailures(PASSWORD_MISMATCH) = %v, want 1", val)
	}
}

func TestAckLatency(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.ObserveAckLatency("arena", 0.05)
	c.ObserveAckLatency("arena", 0.1)

	hist, err := c.AckLatency.GetMetricWithLabelValues("arena")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}

	m := &dto.Metric{}
	if err := hist.(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("AckLatency sample count = %d, want 2", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// gaugeValue reads the current value of a GaugeVec with the given labels.
func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
