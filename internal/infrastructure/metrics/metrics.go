package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "homewire"

// Metrics holds every counter the pipeline and accessor report into.
// A nil *Metrics is valid: all record methods become no-ops, so components
// never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	messagesReceived   *prometheus.CounterVec
	messagesDropped    *prometheus.CounterVec
	messagesNormalized *prometheus.CounterVec
	messagesDispatched *prometheus.CounterVec
	handlerFailures    *prometheus.CounterVec
	commandsPublished  *prometheus.CounterVec
}

// New creates and registers the metric set on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_received_total",
			Help:      "Raw messages accepted by the ingestor.",
		}, []string{"protocol", "type"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped before reaching a consumer.",
		}, []string{"stage", "reason"}),
		messagesNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_normalized_total",
			Help:      "Messages successfully converted to canonical state.",
		}, []string{"protocol", "model"}),
		messagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Messages routed by each dispatcher, by outcome.",
		}, []string{"dispatcher", "outcome"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_failures_total",
			Help:      "Handler panics recovered by dispatchers.",
		}, []string{"dispatcher"}),
		commandsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accessor",
			Name:      "commands_published_total",
			Help:      "Device commands published to the broker.",
		}, []string{"protocol"}),
	}

	m.registry.MustRegister(
		m.messagesReceived,
		m.messagesDropped,
		m.messagesNormalized,
		m.messagesDispatched,
		m.handlerFailures,
		m.commandsPublished,
	)
	return m
}

// Registry returns the prometheus registry holding the metric set.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Received records a raw message accepted by the ingestor.
func (m *Metrics) Received(protocol, msgType string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(protocol, msgType).Inc()
}

// Dropped records a message dropped at a pipeline stage.
func (m *Metrics) Dropped(stage, reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(stage, reason).Inc()
}

// Normalized records a message that reached canonical form.
func (m *Metrics) Normalized(protocol, model string) {
	if m == nil {
		return
	}
	m.messagesNormalized.WithLabelValues(protocol, model).Inc()
}

// Dispatched records a dispatcher routing outcome.
// Together with HandlerFailure this satisfies dispatch.Recorder.
func (m *Metrics) Dispatched(dispatcher, outcome string) {
	if m == nil {
		return
	}
	m.messagesDispatched.WithLabelValues(dispatcher, outcome).Inc()
}

// HandlerFailure records a recovered handler panic.
func (m *Metrics) HandlerFailure(dispatcher string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(dispatcher).Inc()
}

// CommandPublished records a device command sent to the broker.
func (m *Metrics) CommandPublished(protocol string) {
	if m == nil {
		return
	}
	m.commandsPublished.WithLabelValues(protocol).Inc()
}
