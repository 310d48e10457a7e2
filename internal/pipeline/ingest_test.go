package pipeline

import (
	"testing"

	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/message"
)

func TestClassify(t *testing.T) {
	in := NewIngestor("zigbee2mqtt", 0, message.NewQueue(8), noopLogger{}, noopRecorder{})

	tests := []struct {
		name         string
		topic        string
		wantNil      bool
		wantType     message.Type
		wantProtocol device.Protocol
		wantDevice   string
		wantTag      string
	}{
		{
			name:         "zigbee2mqtt state report",
			topic:        "zigbee2mqtt/kitchen_lamp",
			wantType:     message.TypeState,
			wantProtocol: device.ProtocolZigbee2MQTT,
			wantDevice:   "kitchen_lamp",
		},
		{
			name:         "zigbee2mqtt availability",
			topic:        "zigbee2mqtt/kitchen_lamp/availability",
			wantType:     message.TypeAvailability,
			wantProtocol: device.ProtocolZigbee2MQTT,
			wantDevice:   "kitchen_lamp",
		},
		{
			name:         "zigbee2mqtt bridge roster",
			topic:        "zigbee2mqtt/bridge/devices",
			wantType:     message.TypeDiscovery,
			wantProtocol: device.ProtocolZigbee2MQTT,
		},
		{
			name:    "bridge state topic is not a device",
			topic:   "zigbee2mqtt/bridge",
			wantNil: true,
		},
		{
			name:    "bridge availability is not a device",
			topic:   "zigbee2mqtt/bridge/availability",
			wantNil: true,
		},
		{
			name:         "tasmota telemetry state",
			topic:        "tele/garage_plug/STATE",
			wantType:     message.TypeState,
			wantProtocol: device.ProtocolTasmota,
			wantDevice:   "garage_plug",
			wantTag:      "STATE",
		},
		{
			name:         "tasmota telemetry sensor",
			topic:        "tele/garage_plug/SENSOR",
			wantType:     message.TypeState,
			wantProtocol: device.ProtocolTasmota,
			wantDevice:   "garage_plug",
			wantTag:      "SENSOR",
		},
		{
			name:         "tasmota last will",
			topic:        "tele/garage_plug/LWT",
			wantType:     message.TypeAvailability,
			wantProtocol: device.ProtocolTasmota,
			wantDevice:   "garage_plug",
		},
		{
			name:         "tasmota discovery config",
			topic:        "tasmota/discovery/AA11BB22CC33/config",
			wantType:     message.TypeDiscovery,
			wantProtocol: device.ProtocolTasmota,
		},
		{
			name:    "tasmota command responses ignored",
			topic:   "stat/garage_plug/RESULT",
			wantNil: true,
		},
		{
			name:    "foreign topic ignored",
			topic:   "homeassistant/light/abc/config",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := in.classify(tt.topic, []byte(`{}`))
			if tt.wantNil {
				if m != nil {
					t.Fatalf("classify(%q) = %+v, want nil", tt.topic, m)
				}
				return
			}
			if m == nil {
				t.Fatalf("classify(%q) = nil", tt.topic)
			}
			if m.Type != tt.wantType {
				t.Errorf("type = %s, want %s", m.Type, tt.wantType)
			}
			if m.Protocol != tt.wantProtocol {
				t.Errorf("protocol = %s, want %s", m.Protocol, tt.wantProtocol)
			}
			if m.DeviceName != tt.wantDevice {
				t.Errorf("device = %q, want %q", m.DeviceName, tt.wantDevice)
			}
			if m.Raw.Tag != tt.wantTag {
				t.Errorf("tag = %q, want %q", m.Raw.Tag, tt.wantTag)
			}
		})
	}
}

func TestClassifyCustomBase(t *testing.T) {
	in := NewIngestor("z2m", 0, message.NewQueue(8), noopLogger{}, noopRecorder{})

	if m := in.classify("z2m/lamp", nil); m == nil || m.Type != message.TypeState {
		t.Errorf("custom base state report not classified: %+v", m)
	}
	if m := in.classify("zigbee2mqtt/lamp", nil); m != nil {
		t.Errorf("default base must not match when a custom base is configured: %+v", m)
	}
}

func TestHandleEnqueues(t *testing.T) {
	q := message.NewQueue(8)
	in := NewIngestor("zigbee2mqtt", 0, q, noopLogger{}, noopRecorder{})

	if err := in.Handle("zigbee2mqtt/lamp", []byte(`{"state":"ON"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := in.Handle("unrelated/topic", []byte(`x`)); err != nil {
		t.Fatalf("Handle unclassified: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}

	m, err := q.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.DeviceName != "lamp" || string(m.Raw.Data) != `{"state":"ON"}` {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestHandleAfterClose(t *testing.T) {
	q := message.NewQueue(1)
	in := NewIngestor("zigbee2mqtt", 0, q, noopLogger{}, noopRecorder{})
	q.Close()

	if err := in.Handle("zigbee2mqtt/lamp", []byte(`{}`)); err == nil {
		t.Fatal("expected error after queue close")
	}
}
