package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
)

// Type classifies what a message says about its device.
type Type string

const (
	// TypeDiscovery announces devices known to a bridge.
	TypeDiscovery Type = "discovery"
	// TypeAvailability reports a device going online or offline.
	TypeAvailability Type = "availability"
	// TypeState carries a device state report.
	TypeState Type = "state"
	// TypeCommand marks an outbound desired-state change. Commands never
	// enter the inbound pipeline; the type exists for correlation on the
	// command path.
	TypeCommand Type = "command"
)

// Item is a raw dialect payload plus the routing tag that arrived with it
// (the Tasmota telemetry leaf; empty for zigbee2mqtt).
type Item struct {
	Data []byte
	Tag  string
}

// Message is the envelope that moves through the pipeline. It is created by
// the ingestor with only the raw fields set; the pipeline stages fill in
// Model and Canonical as the message is refined.
type Message struct {
	ID         uuid.UUID
	Type       Type
	Protocol   device.Protocol
	Model      device.Model
	DeviceName string
	Raw        Item
	Canonical  codec.State
	ReceivedAt time.Time
}

// New creates a message envelope with a fresh ID and receipt timestamp.
func New(t Type, protocol device.Protocol, deviceName string, raw Item) *Message {
	return &Message{
		ID:         uuid.New(),
		Type:       t,
		Protocol:   protocol,
		DeviceName: deviceName,
		Raw:        raw,
		ReceivedAt: time.Now().UTC(),
	}
}

// Refined reports whether the message carries a canonical state.
func (m *Message) Refined() bool {
	return m.Canonical != nil
}

// Predicate decides whether a dispatch route applies to a message.
type Predicate func(*Message) bool

// IsType matches messages of the given type.
func IsType(t Type) Predicate {
	return func(m *Message) bool { return m.Type == t }
}

// IsDiscovery matches discovery announcements.
func IsDiscovery() Predicate { return IsType(TypeDiscovery) }

// IsAvailability matches availability updates.
func IsAvailability() Predicate { return IsType(TypeAvailability) }

// IsState matches state reports.
func IsState() Predicate { return IsType(TypeState) }

// IsProtocol matches messages from the given protocol.
func IsProtocol(p device.Protocol) Predicate {
	return func(m *Message) bool { return m.Protocol == p }
}

// ForDevices matches messages whose device name is in names. The single
// name "*" matches every message.
func ForDevices(names ...string) Predicate {
	if len(names) == 1 && names[0] == "*" {
		return func(*Message) bool { return true }
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(m *Message) bool {
		_, ok := set[m.DeviceName]
		return ok
	}
}

// All matches when every given predicate matches.
func All(preds ...Predicate) Predicate {
	return func(m *Message) bool {
		for _, p := range preds {
			if !p(m) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one given predicate matches.
func Any(preds ...Predicate) Predicate {
	return func(m *Message) bool {
		for _, p := range preds {
			if p(m) {
				return true
			}
		}
		return false
	}
}
