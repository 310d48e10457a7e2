package message

import (
	"testing"

	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
)

func TestNewStampsEnvelope(t *testing.T) {
	m := New(TypeState, device.ProtocolTasmota, "plug", Item{Data: []byte(`{"POWER":"ON"}`), Tag: "STATE"})

	if m.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("New() did not assign an ID")
	}
	if m.ReceivedAt.IsZero() {
		t.Error("New() did not stamp ReceivedAt")
	}
	if m.Refined() {
		t.Error("fresh message reports refined")
	}

	m.Canonical = codec.Switch{Power: codec.PowerP(codec.PowerOn)}
	if !m.Refined() {
		t.Error("message with canonical state reports unrefined")
	}
}

func TestPredicates(t *testing.T) {
	state := New(TypeState, device.ProtocolZigbee2MQTT, "lamp", Item{})
	avail := New(TypeAvailability, device.ProtocolTasmota, "plug", Item{})
	disco := New(TypeDiscovery, device.ProtocolZigbee2MQTT, "", Item{})

	tests := []struct {
		name string
		pred Predicate
		msg  *Message
		want bool
	}{
		{"is state", IsState(), state, true},
		{"is state rejects availability", IsState(), avail, false},
		{"is availability", IsAvailability(), avail, true},
		{"is discovery", IsDiscovery(), disco, true},
		{"protocol match", IsProtocol(device.ProtocolTasmota), avail, true},
		{"protocol mismatch", IsProtocol(device.ProtocolTasmota), state, false},
		{"device list hit", ForDevices("lamp", "plug"), state, true},
		{"device list miss", ForDevices("plug"), state, false},
		{"wildcard", ForDevices("*"), disco, true},
		{"all", All(IsState(), ForDevices("lamp")), state, true},
		{"all short-circuits", All(IsState(), ForDevices("plug")), state, false},
		{"any", Any(IsDiscovery(), IsAvailability()), avail, true},
		{"any none", Any(IsDiscovery(), IsAvailability()), state, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.msg); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}
