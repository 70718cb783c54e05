package sessionmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "dpsession"
	subsystem = "session"
)

// Label names for session metrics.
const (
	labelSessionName = "session_name"
	labelMessageCode = "message_code"
	labelJoinError   = "join_error"
)

// -------------------------------------------------------------------------
// Collector — Prometheus session metrics
// -------------------------------------------------------------------------

// Collector holds all session Prometheus metrics.
//
//   - Peers tracks the number of currently connected peers.
//   - MessagesSent/MessagesReceived count protocol frames per message code.
//   - AckLatency records round-trip time of the ack sub-protocol.
//   - EnumResponses counts host-enumeration replies sent.
//   - JoinFailures counts rejected CONNECT_HOST attempts by reason.
type Collector struct {
	// Peers tracks the number of currently connected peers for a session.
	Peers *prometheus.GaugeVec

	// MessagesSent counts application and protocol frames transmitted.
	MessagesSent *prometheus.CounterVec

	// MessagesReceived counts application and protocol frames received.
	MessagesReceived *prometheus.CounterVec

	// AckLatency records the time between an acked send and its resolution.
	AckLatency *prometheus.HistogramVec

	// EnumResponses counts HOST_ENUM_RESPONSE datagrams sent by a host.
	EnumResponses *prometheus.CounterVec

	// JoinFailures counts CONNECT_HOST attempts rejected, labeled by
	// join error code.
	JoinFailures *prometheus.CounterVec
}

// NewCollector creates a Collector with all session metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Peers,
		c.MessagesSent,
		c.MessagesReceived,
		c.AckLatency,
		c.EnumResponses,
		c.JoinFailures,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	sessionLabels := []string{labelSessionName}
	messageLabels := []string{labelSessionName, labelMessageCode}
	joinLabels := []string{labelSessionName, labelJoinError}

	return &Collector{
		Peers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peers",
			Help:      "Number of currently connected peers.",
		}, sessionLabels),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total protocol frames transmitted, by message code.",
		}, messageLabels),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total protocol frames received, by message code.",
		}, messageLabels),

		AckLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ack_latency_seconds",
			Help:      "Latency between a guaranteed send and its ack resolution.",
			Buckets:   prometheus.DefBuckets,
		}, sessionLabels),

		EnumResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "enum_responses_total",
			Help:      "Total HOST_ENUM_RESPONSE datagrams sent.",
		}, sessionLabels),

		JoinFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "join_failures_total",
			Help:      "Total CONNECT_HOST attempts rejected, by join error code.",
		}, joinLabels),
	}
}

// -------------------------------------------------------------------------
// Peer Lifecycle
// -------------------------------------------------------------------------

// RegisterPeer increments the connected-peers gauge for sessionName.
func (c *Collector) RegisterPeer(sessionName string) {
	c.Peers.WithLabelValues(sessionName).Inc()
}

// UnregisterPeer decrements the connected-peers gauge for sessionName.
func (c *Collector) UnregisterPeer(sessionName string) {
	c.Peers.WithLabelValues(sessionName).Dec()
}

// -------------------------------------------------------------------------
// Message Counters
// -------------------------------------------------------------------------

// IncMessagesSent increments the sent-frame counter for (sessionName, code).
func (c *Collector) IncMessagesSent(sessionName, code string) {
	c.MessagesSent.WithLabelValues(sessionName, code).Inc()
}

// IncMessagesReceived increments the received-frame counter for
// (sessionName, code).
func (c *Collector) IncMessagesReceived(sessionName, code string) {
	c.MessagesReceived.WithLabelValues(sessionName, code).Inc()
}

// -------------------------------------------------------------------------
// Ack Latency
// -------------------------------------------------------------------------

// ObserveAckLatency records the elapsed seconds between a guaranteed send
// and its ack resolution.
func (c *Collector) ObserveAckLatency(sessionName string, seconds float64) {
	c.AckLatency.WithLabelValues(sessionName).Observe(seconds)
}

// -------------------------------------------------------------------------
// Discovery
// -------------------------------------------------------------------------

// IncEnumResponses increments the enumeration-reply counter for sessionName.
func (c *Collector) IncEnumResponses(sessionName string) {
	c.EnumResponses.WithLabelValues(sessionName).Inc()
}

// -------------------------------------------------------------------------
// Join Protocol
// -------------------------------------------------------------------------

// IncJoinFailures increments the join-failure counter for
// (sessionName, joinError).
func (c *Collector) IncJoinFailures(sessionName, joinError string) {
	c.JoinFailures.WithLabelValues(sessionName, joinError).Inc()
}
