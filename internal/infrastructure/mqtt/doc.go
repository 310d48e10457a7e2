// Package mqtt is Homewire's broker connection.
//
// MQTT is the only transport Homewire speaks. Device firmwares and bridges
// (zigbee2mqtt, Tasmota) publish their dialect traffic to the broker; the
// pipeline subscribes to it here and the accessor publishes commands back
// through the same client.
//
// The client owns three responsibilities beyond plain paho usage:
//
//   - subscriptions are tracked and restored after every reconnect, so a
//     broker restart costs nothing but the downtime itself
//   - message handlers run behind a panic recovery, keeping the receive
//     path alive through a bad payload
//   - a retained LWT on homewire/system/status lets peers distinguish a
//     crash from a graceful shutdown
//
// The Topics type centralises every topic and pattern Homewire touches;
// build topics through it rather than with string literals.
//
// Connection loss is not an error to the rest of the system. Ingestion
// simply pauses until paho's auto-reconnect restores the link.
package mqtt
