// Package metrics defines the Prometheus instruments the bridge exposes
// over /metrics: CAN frame throughput, command dispatch, light
// transitions, and MQTT publish activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every instrument the bridge records to, so the rest of
// the codebase takes one Registry value instead of importing
// prometheus directly at each call site.
type Registry struct {
	FramesReceived     *prometheus.CounterVec
	FramesDropped      *prometheus.CounterVec
	CommandsReceived   *prometheus.CounterVec
	CommandErrors      *prometheus.CounterVec
	TransitionsActive  prometheus.Gauge
	MQTTPublishes      *prometheus.CounterVec
	BusConnected       prometheus.Gauge
}

// New registers every instrument against reg and returns the populated
// Registry. Pass prometheus.DefaultRegisterer in production, a fresh
// prometheus.NewRegistry() in tests to avoid cross-test collisions.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheiber_can_frames_received_total",
			Help: "CAN frames received from the bus, by device type.",
		}, []string{"device_type"}),

		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheiber_can_frames_dropped_total",
			Help: "CAN frames dropped before dispatch, by reason.",
		}, []string{"reason"}),

		CommandsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheiber_mqtt_commands_received_total",
			Help: "Command-topic messages received, by entity kind.",
		}, []string{"entity_kind"}),

		CommandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheiber_mqtt_command_errors_total",
			Help: "Command-topic messages rejected, by failure kind.",
		}, []string{"kind"}),

		TransitionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheiber_light_transitions_active",
			Help: "Number of dimmable lights currently mid-fade.",
		}),

		MQTTPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheiber_mqtt_publishes_total",
			Help: "Messages published to MQTT, by topic kind.",
		}, []string{"topic_kind"}),

		BusConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheiber_can_bus_connected",
			Help: "1 when the CAN bus connection is up, 0 otherwise.",
		}),
	}
}

// CommandReceived implements mqttbridge.Recorder.
func (r *Registry) CommandReceived(entityKind string) {
	r.CommandsReceived.WithLabelValues(entityKind).Inc()
}

// CommandError implements mqttbridge.Recorder.
func (r *Registry) CommandError(kind string) {
	r.CommandErrors.WithLabelValues(kind).Inc()
}
