package codec

import "reflect"

// State is a canonical device state. Every variant is a plain struct whose
// optional fields are pointers, so an unset field (nil) is distinguishable
// from a zero value. Consumers switch on the concrete type.
type State interface {
	isState()
}

// Power is the canonical on/off value. Dialect spellings ("ON", "off", "1")
// are normalised to these two values at decode time.
type Power string

const (
	PowerOn  Power = "on"
	PowerOff Power = "off"
)

// Toggle returns the opposite power value.
func (p Power) Toggle() Power {
	if p == PowerOn {
		return PowerOff
	}
	return PowerOn
}

// PowerOf converts a boolean to a Power value.
func PowerOf(on bool) Power {
	if on {
		return PowerOn
	}
	return PowerOff
}

// Button action values.
const (
	ActionSingle = "single"
	ActionDouble = "double"
	ActionLong   = "long"
)

// Switch is the canonical state of a single-channel relay or plug.
type Switch struct {
	Power *Power `json:"power,omitempty"`
}

// Switch2Channels is the canonical state of a two-channel relay.
type Switch2Channels struct {
	Power1 *Power `json:"power1,omitempty"`
	Power2 *Power `json:"power2,omitempty"`
}

// Motion is the canonical state of an occupancy sensor.
type Motion struct {
	Occupancy *bool    `json:"occupancy,omitempty"`
	Tamper    *bool    `json:"tamper,omitempty"`
	Battery   *float64 `json:"battery,omitempty"`
}

// AirSensor is the canonical state of a temperature and humidity sensor.
type AirSensor struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Battery     *float64 `json:"battery,omitempty"`
}

// Button is the canonical state of a push button. Action is one of
// ActionSingle, ActionDouble or ActionLong.
type Button struct {
	Action  *string  `json:"action,omitempty"`
	Battery *float64 `json:"battery,omitempty"`
}

// Alarm is the canonical state of a siren.
type Alarm struct {
	Alarm    *bool    `json:"alarm,omitempty"`
	Melody   *int     `json:"melody,omitempty"`
	Volume   *string  `json:"volume,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Battery  *float64 `json:"battery,omitempty"`
}

// Thermostat is the canonical state of a radiator valve.
type Thermostat struct {
	LocalTemperature        *float64 `json:"local_temperature,omitempty"`
	OccupiedHeatingSetpoint *float64 `json:"occupied_heating_setpoint,omitempty"`
	AwayPresetTemperature   *float64 `json:"away_preset_temperature,omitempty"`
	SystemMode              *string  `json:"system_mode,omitempty"`
	Preset                  *string  `json:"preset,omitempty"`
	RunningState            *string  `json:"running_state,omitempty"`
	ChildLock               *bool    `json:"child_lock,omitempty"`
	Calibrated              *bool    `json:"calibrated,omitempty"`
	Battery                 *float64 `json:"battery,omitempty"`
}

// Availability is the canonical online/offline state of any device.
type Availability struct {
	Online bool `json:"online"`
}

// Roster is the canonical result of a discovery announcement: the set of
// device names a bridge knows about.
type Roster struct {
	DeviceNames []string `json:"device_names"`
}

func (Switch) isState()          {}
func (Switch2Channels) isState() {}
func (Motion) isState()          {}
func (AirSensor) isState()       {}
func (Button) isState()          {}
func (Alarm) isState()           {}
func (Thermostat) isState()      {}
func (Availability) isState()    {}
func (Roster) isState()          {}

// Pointer helpers for building partial desired states.

func PowerP(p Power) *Power      { return &p }
func Bool(v bool) *bool          { return &v }
func Int(v int) *int             { return &v }
func Float64(v float64) *float64 { return &v }
func String(v string) *string    { return &v }

// Satisfies reports whether got matches every field that is set in want.
// A field is set when it is a non-nil pointer or a non-empty slice. States
// of different concrete types never satisfy each other.
//
// It is used to decide when a command has been acknowledged: the desired
// state is the want, the next decoded state notification is the got.
func Satisfies(got, want State) bool {
	if got == nil || want == nil {
		return false
	}
	gv := reflect.ValueOf(got)
	wv := reflect.ValueOf(want)
	if gv.Type() != wv.Type() {
		return false
	}

	for i := 0; i < wv.NumField(); i++ {
		wf := wv.Field(i)
		switch wf.Kind() {
		case reflect.Pointer:
			if wf.IsNil() {
				continue
			}
			gf := gv.Field(i)
			if gf.IsNil() || !gf.Elem().Equal(wf.Elem()) {
				return false
			}
		case reflect.Slice:
			if wf.Len() == 0 {
				continue
			}
			if !reflect.DeepEqual(gv.Field(i).Interface(), wf.Interface()) {
				return false
			}
		default:
			if !gv.Field(i).Equal(wf) {
				return false
			}
		}
	}
	return true
}
