package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersAllInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FramesReceived.WithLabelValues("bloc9").Inc()
	m.CommandErrors.WithLabelValues("MqttParseFailed").Inc()
	m.BusConnected.Set(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"scheiber_can_frames_received_total",
		"scheiber_mqtt_command_errors_total",
		"scheiber_can_bus_connected",
	} {
		if !names[want] {
			t.Errorf("missing metric family %q", want)
		}
	}
}

func TestBusConnectedGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.BusConnected.Set(1)

	var metric dto.Metric
	if err := m.BusConnected.Write(&metric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if metric.GetGauge().GetValue() != 1 {
		t.Fatalf("BusConnected = %v, want 1", metric.GetGauge().GetValue())
	}
}
