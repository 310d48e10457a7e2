package device

import "time"

// Protocol identifies the transport dialect a device's messages originate
// from: either a direct vendor firmware publishing its own JSON, or a bridge
// re-publishing on the device's behalf.
type Protocol string

const (
	ProtocolZigbee2MQTT Protocol = "zigbee2mqtt"
	ProtocolTasmota     Protocol = "tasmota"
	ProtocolShelly      Protocol = "shelly"
	ProtocolHomie       Protocol = "homie"
	ProtocolRing        Protocol = "ring"
	ProtocolDefault     Protocol = "default"
)

// AllProtocols returns every valid protocol value.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolZigbee2MQTT, ProtocolTasmota, ProtocolShelly,
		ProtocolHomie, ProtocolRing, ProtocolDefault,
	}
}

// Model identifies a device product within a protocol. The model determines
// the payload shape and therefore which codec applies.
//
// Tags follow what the devices themselves announce: the Zigbee model ID for
// zigbee2mqtt devices, the Tasmota discovery "md" field for Tasmota ones.
type Model string

const (
	// ModelUnknown marks a device whose model has not been resolved yet.
	ModelUnknown Model = ""

	// Zigbee2MQTT dialect.
	ModelSonoffMini      Model = "ZBMINI"
	ModelSonoffMiniL2    Model = "ZBMINIL2"
	ModelSonoffSmartPlug Model = "S26R2ZB"
	ModelSonoffAirSensor Model = "SNZB-02"
	ModelSonoffMotion    Model = "SNZB-03"
	ModelSonoffButton    Model = "SNZB-01"
	ModelAqaraTRV        Model = "SRTS-A01"
	ModelNeoSiren        Model = "NAS-AB02B2"

	// Tasmota dialect.
	ModelShellyPlugS Model = "Shelly Plug S"
	ModelShellyUni   Model = "Shelly Uni"
)

// Device is a single registry entry built by passive discovery.
//
// Name is the stable external identifier, unique per physical device across
// all protocols. Model may be ModelUnknown until resolution succeeds; once
// set it is never cleared, only confirmed.
type Device struct {
	Name      string    `json:"name"`
	Protocol  Protocol  `json:"protocol"`
	Model     Model     `json:"model,omitempty"`
	Address   string    `json:"address,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
