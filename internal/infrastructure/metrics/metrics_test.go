package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	// None of these may panic.
	m.Received("tasmota", "state")
	m.Dropped("normalize", "schema_mismatch")
	m.Normalized("zigbee2mqtt", "ZBMINI")
	m.Dispatched("consumer", "handled")
	m.HandlerFailure("consumer")
	m.CommandPublished("tasmota")
	if m.Registry() != nil {
		t.Error("Registry() on nil metrics = non-nil")
	}
}

func TestCountersAccumulate(t *testing.T) {
	m := New()

	m.Received("tasmota", "state")
	m.Received("tasmota", "state")
	m.Received("zigbee2mqtt", "discovery")

	got := testutil.ToFloat64(m.messagesReceived.WithLabelValues("tasmota", "state"))
	if got != 2 {
		t.Errorf("messages_received{tasmota,state} = %v, want 2", got)
	}

	m.Dispatched("consumer", "handled")
	if got := testutil.ToFloat64(m.messagesDispatched.WithLabelValues("consumer", "handled")); got != 1 {
		t.Errorf("dispatch messages{consumer,handled} = %v, want 1", got)
	}

	m.Dropped("resolve", "unknown_device")
	if got := testutil.ToFloat64(m.messagesDropped.WithLabelValues("resolve", "unknown_device")); got != 1 {
		t.Errorf("messages_dropped{resolve,unknown_device} = %v, want 1", got)
	}
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.CommandPublished("zigbee2mqtt")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "homewire_accessor_commands_published_total" {
			found = true
		}
	}
	if !found {
		t.Error("commands_published_total not gathered")
	}
}
