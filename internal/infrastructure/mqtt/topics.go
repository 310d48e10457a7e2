package mqtt

import "fmt"

// Topic prefixes for the dialects Homewire speaks.
//
// zigbee2mqtt topics live under a configurable base (the bridge's
// base_topic, "zigbee2mqtt" by default). Tasmota topics use the firmware's
// fixed tele/cmnd/stat prefixes.
const (
	// TopicPrefixSystem is the base for Homewire's own topics.
	TopicPrefixSystem = "homewire/system"

	// TopicPrefixTele is the Tasmota telemetry prefix.
	TopicPrefixTele = "tele"

	// TopicPrefixCmnd is the Tasmota command prefix.
	TopicPrefixCmnd = "cmnd"

	// TopicPrefixTasmotaDiscovery is where Tasmota firmwares announce
	// themselves.
	TopicPrefixTasmotaDiscovery = "tasmota/discovery"
)

// Topics provides builders for every MQTT topic Homewire publishes or
// subscribes to. Using these helpers keeps topic naming consistent across
// the codebase.
//
//	topics := mqtt.Topics{}
//	setTopic := topics.Z2MSet("zigbee2mqtt", "kitchen_lamp")
//	// Returns: "zigbee2mqtt/kitchen_lamp/set"
type Topics struct{}

// SystemStatus returns the topic for Homewire's own online/offline status.
//
// Example: homewire/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Z2MState returns the subscription pattern for zigbee2mqtt device state
// reports. The single-level wildcard matches the device friendly name.
//
// Example: zigbee2mqtt/+
func (Topics) Z2MState(base string) string {
	return base + "/+"
}

// Z2MAvailability returns the subscription pattern for zigbee2mqtt
// availability updates.
//
// Example: zigbee2mqtt/+/availability
func (Topics) Z2MAvailability(base string) string {
	return base + "/+/availability"
}

// Z2MDiscovery returns the topic the zigbee2mqtt bridge announces its
// device list on.
//
// Example: zigbee2mqtt/bridge/devices
func (Topics) Z2MDiscovery(base string) string {
	return base + "/bridge/devices"
}

// Z2MSet returns the command topic for a zigbee2mqtt device.
//
// Example: zigbee2mqtt/kitchen_lamp/set
func (Topics) Z2MSet(base, deviceName string) string {
	return fmt.Sprintf("%s/%s/set", base, deviceName)
}

// Z2MGet returns the state-request topic for a zigbee2mqtt device.
//
// Example: zigbee2mqtt/kitchen_lamp/get
func (Topics) Z2MGet(base, deviceName string) string {
	return fmt.Sprintf("%s/%s/get", base, deviceName)
}

// TasmotaTelemetry returns the subscription pattern for Tasmota telemetry.
// The second wildcard is the telemetry leaf (STATE, SENSOR, LWT).
//
// Pattern: tele/+/+
func (Topics) TasmotaTelemetry() string {
	return TopicPrefixTele + "/+/+"
}

// TasmotaAvailability returns the subscription pattern for Tasmota last
// will messages.
//
// Pattern: tele/+/LWT
func (Topics) TasmotaAvailability() string {
	return TopicPrefixTele + "/+/LWT"
}

// TasmotaDiscovery returns the subscription pattern for Tasmota discovery
// announcements.
//
// Pattern: tasmota/discovery/+/config
func (Topics) TasmotaDiscovery() string {
	return TopicPrefixTasmotaDiscovery + "/+/config"
}

// TasmotaCommand returns the per-field command topic for a Tasmota device.
//
// Example: cmnd/kitchen_plug/POWER
func (Topics) TasmotaCommand(deviceName, field string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixCmnd, deviceName, field)
}

// TasmotaStateRequest returns the topic that asks a Tasmota device to
// re-publish its state. Publishing an empty payload to STATE triggers a
// tele/<device>/STATE response.
//
// Example: cmnd/kitchen_plug/STATE
func (Topics) TasmotaStateRequest(deviceName string) string {
	return fmt.Sprintf("%s/%s/STATE", TopicPrefixCmnd, deviceName)
}
