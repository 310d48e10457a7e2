// Package accessor is the command side of Homewire: it turns canonical
// desired states into dialect-native MQTT publications and matches the
// resulting state reports back to waiting callers.
//
// The accessor is the mirror of the pipeline. Where the pipeline decodes
// each dialect into canonical states, the accessor encodes canonical
// states into each dialect: a zigbee2mqtt device gets one JSON document on
// its set topic, a Tasmota device gets one publication per field on its
// cmnd topics.
//
// Feed ObserveState from a consumer on the pipeline's refined queue. It
// maintains the last known state per device and completes the waits opened
// by ChangeStateAndWait, which considers a command acknowledged once the
// device reports a state satisfying the desired one.
//
// Deferred switching (countdown, on-time, off-time) runs on per-device
// timers; scheduling a new timer for a device replaces the old one.
package accessor
