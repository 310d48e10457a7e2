package pipeline

import (
	"strings"

	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/infrastructure/mqtt"
	"github.com/arnowe/homewire/internal/message"
)

// Transport is the slice of the MQTT client the pipeline needs.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Ingestor subscribes to both dialects' topic families and turns every
// delivery into a raw Message on the head queue. It does no payload work:
// classification comes from the topic alone, so a malformed payload still
// enters the pipeline and is diagnosed where it fails.
type Ingestor struct {
	base    string // zigbee2mqtt base topic
	qos     byte
	out     *message.Queue
	logger  Logger
	metrics Recorder
}

// NewIngestor creates an ingestor feeding out.
func NewIngestor(z2mBase string, qos byte, out *message.Queue, logger Logger, rec Recorder) *Ingestor {
	return &Ingestor{base: z2mBase, qos: qos, out: out, logger: logger, metrics: rec}
}

// Subscribe registers the dialect subscriptions on the transport.
//
// Tasmota LWT topics match tele/+/+, so a single telemetry subscription
// covers state, sensor and availability traffic without duplicate delivery.
func (in *Ingestor) Subscribe(t Transport) error {
	topics := mqtt.Topics{}
	patterns := []string{
		topics.Z2MState(in.base),
		topics.Z2MAvailability(in.base),
		topics.Z2MDiscovery(in.base),
		topics.TasmotaTelemetry(),
		topics.TasmotaDiscovery(),
	}
	for _, p := range patterns {
		if err := t.Subscribe(p, in.qos, in.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle classifies one delivery and enqueues it. Topics outside both
// dialects are ignored. Blocks while the head queue is full.
func (in *Ingestor) Handle(topic string, payload []byte) error {
	m := in.classify(topic, payload)
	if m == nil {
		return nil
	}
	if err := in.out.Put(m); err != nil {
		in.metrics.Dropped("ingest", "queue_closed")
		return err
	}
	in.metrics.Received(string(m.Protocol), string(m.Type))
	return nil
}

// classify maps a topic to a raw message envelope, or nil for traffic the
// pipeline does not track.
func (in *Ingestor) classify(topic string, payload []byte) *message.Message {
	parts := strings.Split(topic, "/")
	raw := message.Item{Data: payload}

	switch {
	case topic == mqtt.Topics{}.Z2MDiscovery(in.base):
		return message.New(message.TypeDiscovery, device.ProtocolZigbee2MQTT, "", raw)

	case len(parts) == 3 && parts[0] == in.base && parts[2] == "availability":
		if parts[1] == "bridge" {
			return nil
		}
		return message.New(message.TypeAvailability, device.ProtocolZigbee2MQTT, parts[1], raw)

	case len(parts) == 2 && parts[0] == in.base:
		if parts[1] == "bridge" {
			return nil
		}
		return message.New(message.TypeState, device.ProtocolZigbee2MQTT, parts[1], raw)

	case len(parts) == 3 && parts[0] == mqtt.TopicPrefixTele:
		if parts[2] == "LWT" {
			return message.New(message.TypeAvailability, device.ProtocolTasmota, parts[1], raw)
		}
		raw.Tag = parts[2]
		return message.New(message.TypeState, device.ProtocolTasmota, parts[1], raw)

	case len(parts) == 4 && parts[0] == "tasmota" && parts[1] == "discovery" && parts[3] == "config":
		return message.New(message.TypeDiscovery, device.ProtocolTasmota, "", raw)

	default:
		in.logger.Debug("unclassifiable topic ignored", "topic", topic)
		return nil
	}
}
