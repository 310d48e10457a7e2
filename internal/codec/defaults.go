package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arnowe/homewire/internal/device"
)

// NewDefaultRegistry creates a registry holding the codecs for every
// supported model.
//
// Registration order matters where signatures overlap: ZBMINI and ZBMINIL2
// both announce state with a bare {"state": ...} payload, so signature
// resolution of either falls to ZBMINI, registered first.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	z2m := []struct {
		model device.Model
		c     Codec
	}{
		{device.ModelSonoffMini, Codec{
			Signature: []string{"state"},
			Decode:    decodeSwitchZ2M,
			Encode:    encodeSwitchZ2M,
		}},
		{device.ModelSonoffMiniL2, Codec{
			Signature: []string{"state"},
			Decode:    decodeSwitchZ2M,
			Encode:    encodeSwitchZ2M,
		}},
		{device.ModelSonoffSmartPlug, Codec{
			Signature: []string{"state"},
			Decode:    decodeSwitchZ2M,
			Encode:    encodeSwitchZ2M,
		}},
		{device.ModelSonoffAirSensor, Codec{
			Signature: []string{"temperature", "humidity"},
			Decode:    decodeAirSensorZ2M,
		}},
		{device.ModelSonoffMotion, Codec{
			Signature: []string{"occupancy"},
			Decode:    decodeMotionZ2M,
		}},
		{device.ModelSonoffButton, Codec{
			Signature: []string{"action"},
			Decode:    decodeButtonZ2M,
		}},
		{device.ModelAqaraTRV, Codec{
			Signature: []string{"local_temperature", "occupied_heating_setpoint"},
			Decode:    decodeThermostatZ2M,
			Encode:    encodeThermostatZ2M,
		}},
		{device.ModelNeoSiren, Codec{
			Signature: []string{"alarm", "volume"},
			Decode:    decodeAlarmZ2M,
			Encode:    encodeAlarmZ2M,
		}},
	}
	for _, e := range z2m {
		if err := r.Register(device.ProtocolZigbee2MQTT, e.model, e.c); err != nil {
			panic(err)
		}
	}

	tasmota := []struct {
		model device.Model
		c     Codec
	}{
		{device.ModelShellyPlugS, Codec{
			Signature: []string{"POWER"},
			Decode:    decodeSwitchTasmota,
			Encode:    encodeSwitchTasmota,
		}},
		{device.ModelShellyUni, Codec{
			Signature: []string{"POWER1"},
			Decode:    decodeSwitch2Tasmota,
			Encode:    encodeSwitch2Tasmota,
		}},
	}
	for _, e := range tasmota {
		if err := r.Register(device.ProtocolTasmota, e.model, e.c); err != nil {
			panic(err)
		}
	}

	return r
}

// ParsePower normalises a dialect power spelling to a canonical Power.
func ParsePower(s string) (Power, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true":
		return PowerOn, nil
	case "off", "0", "false":
		return PowerOff, nil
	default:
		return "", fmt.Errorf("%w: power value %q", ErrSchemaMismatch, s)
	}
}

// WirePower renders a canonical Power in the uppercase spelling both
// dialects accept in commands.
func WirePower(p Power) string {
	if p == PowerOn {
		return "ON"
	}
	return "OFF"
}

// ParseAvailability decodes an availability payload. Both the plain-string
// form ("online", "Offline") and the zigbee2mqtt JSON form
// ({"state":"online"}) are accepted.
func ParseAvailability(data []byte) (Availability, error) {
	text := bytes.TrimSpace(data)
	if len(text) > 0 && text[0] == '{' {
		var p struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(text, &p); err != nil {
			return Availability{}, fmt.Errorf("%w: availability payload: %v", ErrSchemaMismatch, err)
		}
		text = []byte(p.State)
	}
	switch strings.ToLower(string(text)) {
	case "online":
		return Availability{Online: true}, nil
	case "offline":
		return Availability{Online: false}, nil
	default:
		return Availability{}, fmt.Errorf("%w: availability value %q", ErrSchemaMismatch, string(text))
	}
}

// zigbee2mqtt decoders

func decodeSwitchZ2M(data []byte, _ string) (State, error) {
	var p struct {
		State *string `json:"state"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.State == nil {
		return nil, fmt.Errorf("%w: missing state field", ErrSchemaMismatch)
	}
	pw, err := ParsePower(*p.State)
	if err != nil {
		return nil, err
	}
	return Switch{Power: &pw}, nil
}

func decodeAirSensorZ2M(data []byte, _ string) (State, error) {
	var p struct {
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
		Battery     *float64 `json:"battery"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.Temperature == nil && p.Humidity == nil {
		return nil, fmt.Errorf("%w: missing temperature and humidity", ErrSchemaMismatch)
	}
	return AirSensor{Temperature: p.Temperature, Humidity: p.Humidity, Battery: p.Battery}, nil
}

func decodeMotionZ2M(data []byte, _ string) (State, error) {
	var p struct {
		Occupancy *bool    `json:"occupancy"`
		Tamper    *bool    `json:"tamper"`
		Battery   *float64 `json:"battery"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.Occupancy == nil {
		return nil, fmt.Errorf("%w: missing occupancy field", ErrSchemaMismatch)
	}
	return Motion{Occupancy: p.Occupancy, Tamper: p.Tamper, Battery: p.Battery}, nil
}

func decodeButtonZ2M(data []byte, _ string) (State, error) {
	var p struct {
		Action  *string  `json:"action"`
		Battery *float64 `json:"battery"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	// Buttons report battery on their own schedule, without an action.
	if p.Action == nil {
		if p.Battery != nil {
			return Button{Battery: p.Battery}, nil
		}
		return nil, fmt.Errorf("%w: missing action field", ErrSchemaMismatch)
	}
	switch *p.Action {
	case ActionSingle, ActionDouble, ActionLong:
		return Button{Action: p.Action, Battery: p.Battery}, nil
	default:
		return nil, fmt.Errorf("%w: action value %q", ErrSchemaMismatch, *p.Action)
	}
}

func decodeThermostatZ2M(data []byte, _ string) (State, error) {
	var p struct {
		LocalTemperature        *float64 `json:"local_temperature"`
		OccupiedHeatingSetpoint *float64 `json:"occupied_heating_setpoint"`
		AwayPresetTemperature   *float64 `json:"away_preset_temperature"`
		SystemMode              *string  `json:"system_mode"`
		Preset                  *string  `json:"preset"`
		RunningState            *string  `json:"running_state"`
		ChildLock               *string  `json:"child_lock"`
		Calibrated              *bool    `json:"calibrated"`
		Battery                 *float64 `json:"battery"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.LocalTemperature == nil && p.OccupiedHeatingSetpoint == nil {
		return nil, fmt.Errorf("%w: missing thermostat fields", ErrSchemaMismatch)
	}
	st := Thermostat{
		LocalTemperature:        p.LocalTemperature,
		OccupiedHeatingSetpoint: p.OccupiedHeatingSetpoint,
		AwayPresetTemperature:   p.AwayPresetTemperature,
		SystemMode:              p.SystemMode,
		Preset:                  p.Preset,
		RunningState:            p.RunningState,
		Calibrated:              p.Calibrated,
		Battery:                 p.Battery,
	}
	if p.ChildLock != nil {
		locked := strings.EqualFold(*p.ChildLock, "LOCK")
		st.ChildLock = &locked
	}
	return st, nil
}

func decodeAlarmZ2M(data []byte, _ string) (State, error) {
	var p struct {
		Alarm    *bool    `json:"alarm"`
		Melody   *int     `json:"melody"`
		Volume   *string  `json:"volume"`
		Duration *int     `json:"duration"`
		Battery  *float64 `json:"battery"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.Alarm == nil {
		return nil, fmt.Errorf("%w: missing alarm field", ErrSchemaMismatch)
	}
	return Alarm{Alarm: p.Alarm, Melody: p.Melody, Volume: p.Volume,
		Duration: p.Duration, Battery: p.Battery}, nil
}

// Tasmota decoders. The tag is the telemetry topic leaf; only STATE payloads
// carry relay state, SENSOR payloads are energy telemetry and produce no
// canonical state.

func decodeSwitchTasmota(data []byte, tag string) (State, error) {
	if tag == "SENSOR" {
		return nil, ErrPayloadIgnored
	}
	var p struct {
		Power *string `json:"POWER"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.Power == nil {
		return nil, fmt.Errorf("%w: missing POWER field", ErrSchemaMismatch)
	}
	pw, err := ParsePower(*p.Power)
	if err != nil {
		return nil, err
	}
	return Switch{Power: &pw}, nil
}

func decodeSwitch2Tasmota(data []byte, tag string) (State, error) {
	if tag == "SENSOR" {
		return nil, ErrPayloadIgnored
	}
	var p struct {
		Power1 *string `json:"POWER1"`
		Power2 *string `json:"POWER2"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if p.Power1 == nil && p.Power2 == nil {
		return nil, fmt.Errorf("%w: missing POWER1 and POWER2 fields", ErrSchemaMismatch)
	}
	var st Switch2Channels
	if p.Power1 != nil {
		pw, err := ParsePower(*p.Power1)
		if err != nil {
			return nil, err
		}
		st.Power1 = &pw
	}
	if p.Power2 != nil {
		pw, err := ParsePower(*p.Power2)
		if err != nil {
			return nil, err
		}
		st.Power2 = &pw
	}
	return st, nil
}

// zigbee2mqtt encoders. The returned map is published as one JSON document
// on the device's set topic.

func encodeSwitchZ2M(_, desired State) (map[string]any, error) {
	sw, ok := desired.(Switch)
	if !ok || sw.Power == nil {
		return nil, fmt.Errorf("%w: switch command requires a power value", ErrNotActionable)
	}
	return map[string]any{"state": WirePower(*sw.Power)}, nil
}

func encodeThermostatZ2M(_, desired State) (map[string]any, error) {
	th, ok := desired.(Thermostat)
	if !ok {
		return nil, fmt.Errorf("%w: thermostat command requires a thermostat state", ErrNotActionable)
	}
	fields := make(map[string]any)
	if th.OccupiedHeatingSetpoint != nil {
		fields["occupied_heating_setpoint"] = *th.OccupiedHeatingSetpoint
	}
	if th.AwayPresetTemperature != nil {
		fields["away_preset_temperature"] = *th.AwayPresetTemperature
	}
	if th.SystemMode != nil {
		fields["system_mode"] = *th.SystemMode
	}
	if th.Preset != nil {
		fields["preset"] = *th.Preset
	}
	if th.ChildLock != nil {
		if *th.ChildLock {
			fields["child_lock"] = "LOCK"
		} else {
			fields["child_lock"] = "UNLOCK"
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no writable thermostat fields set", ErrNotActionable)
	}
	return fields, nil
}

func encodeAlarmZ2M(_, desired State) (map[string]any, error) {
	al, ok := desired.(Alarm)
	if !ok || al.Alarm == nil {
		return nil, fmt.Errorf("%w: alarm command requires an alarm value", ErrNotActionable)
	}
	fields := map[string]any{"alarm": *al.Alarm}
	if al.Melody != nil {
		fields["melody"] = *al.Melody
	}
	if al.Volume != nil {
		fields["volume"] = *al.Volume
	}
	if al.Duration != nil {
		fields["duration"] = *al.Duration
	}
	return fields, nil
}

// Tasmota encoders. Each returned map entry is published as its own
// cmnd/<device>/<Field> message with the bare value as payload.

func encodeSwitchTasmota(_, desired State) (map[string]any, error) {
	sw, ok := desired.(Switch)
	if !ok || sw.Power == nil {
		return nil, fmt.Errorf("%w: switch command requires a power value", ErrNotActionable)
	}
	return map[string]any{"POWER": WirePower(*sw.Power)}, nil
}

func encodeSwitch2Tasmota(_, desired State) (map[string]any, error) {
	sw, ok := desired.(Switch2Channels)
	if !ok || (sw.Power1 == nil && sw.Power2 == nil) {
		return nil, fmt.Errorf("%w: two-channel command requires a power value", ErrNotActionable)
	}
	fields := make(map[string]any)
	if sw.Power1 != nil {
		fields["POWER1"] = WirePower(*sw.Power1)
	}
	if sw.Power2 != nil {
		fields["POWER2"] = WirePower(*sw.Power2)
	}
	return fields, nil
}
