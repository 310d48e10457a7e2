package accessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/infrastructure/mqtt"
	"github.com/arnowe/homewire/internal/message"
)

// Logger defines the logging interface used by the accessor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder counts accessor events. *metrics.Metrics satisfies it.
type Recorder interface {
	CommandPublished(protocol string)
}

type noopRecorder struct{}

func (noopRecorder) CommandPublished(string) {}

// Publisher is the slice of the MQTT client the accessor needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Config carries the accessor settings.
type Config struct {
	// Z2MBase is the zigbee2mqtt bridge base topic.
	Z2MBase string

	// QoS for command publications.
	QoS byte

	// AckTimeout bounds ChangeStateAndWait when the caller's context
	// carries no earlier deadline.
	AckTimeout time.Duration
}

// Accessor issues commands to devices in their native dialect and matches
// the resulting state reports back to the callers that wait for them.
//
// Feed ObserveState from a consumer on the pipeline's refined queue; it
// keeps the last known state per device and completes acknowledgement
// waits.
type Accessor struct {
	cfg      Config
	registry *device.Registry
	codecs   *codec.Registry
	pub      Publisher
	topics   mqtt.Topics

	waiters *waiterSet
	timers  *timerManager
	states  *stateCache

	logger  Logger
	metrics Recorder
}

// New creates an accessor. The registry resolves device names to protocol
// and model; the codec registry provides the encoders.
func New(registry *device.Registry, codecs *codec.Registry, pub Publisher, cfg Config) *Accessor {
	return &Accessor{
		cfg:      cfg,
		registry: registry,
		codecs:   codecs,
		pub:      pub,
		waiters:  newWaiterSet(),
		timers:   newTimerManager(),
		states:   newStateCache(),
		logger:   noopLogger{},
		metrics:  noopRecorder{},
	}
}

// SetLogger installs a logger. Call before use.
func (a *Accessor) SetLogger(logger Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// SetRecorder installs a metrics recorder. Call before use.
func (a *Accessor) SetRecorder(rec Recorder) {
	if rec != nil {
		a.metrics = rec
	}
}

// Close cancels every pending timer. Pending acknowledgement waits run
// into their timeouts.
func (a *Accessor) Close() {
	a.timers.cancelAll()
}

// ObserveState records a refined state report and completes any
// acknowledgement waits it satisfies. Wire it into a consumer route on the
// pipeline's refined queue.
func (a *Accessor) ObserveState(m *message.Message) {
	if m == nil || m.Type != message.TypeState || m.Canonical == nil {
		return
	}
	a.states.put(m.DeviceName, m.Canonical)
	a.waiters.notify(m.DeviceName, m.Canonical)
}

// LastState returns the most recent canonical state observed for the
// device, if any.
func (a *Accessor) LastState(name string) (codec.State, bool) {
	return a.states.get(name)
}

// TriggerGetState asks a device to re-publish its state. zigbee2mqtt
// devices answer a get request on their command topic; Tasmota devices
// answer an empty STATE command.
func (a *Accessor) TriggerGetState(name string, protocol device.Protocol, model device.Model) error {
	var topic string
	var payload []byte

	switch protocol {
	case device.ProtocolTasmota:
		topic = a.topics.TasmotaStateRequest(name)
	case device.ProtocolZigbee2MQTT:
		topic = a.topics.Z2MGet(a.cfg.Z2MBase, name)
		payload = []byte(`{"state":""}`)
	default:
		return fmt.Errorf("state request for %q: %w: %s", name, device.ErrInvalidProtocol, protocol)
	}

	if err := a.pub.Publish(topic, payload, a.cfg.QoS, false); err != nil {
		return fmt.Errorf("state request for %q: %w", name, err)
	}
	a.metrics.CommandPublished(string(protocol))
	a.logger.Debug("state request published", "device", name, "topic", topic)
	return nil
}

// TriggerChangeState encodes the desired state and publishes it in the
// device's dialect. It does not wait for the device to confirm.
//
// Returns codec.ErrNotActionable for sensor-only models, for models with no
// registered codec (that error also matches codec.ErrCodecNotFound), and
// wrapped from the encoder when desired carries no applicable fields.
func (a *Accessor) TriggerChangeState(name string, protocol device.Protocol, model device.Model, desired codec.State) error {
	c, err := a.codecs.Lookup(protocol, model)
	if err != nil {
		// A model without a codec cannot take commands.
		return fmt.Errorf("command for %q: %w: %w", name, codec.ErrNotActionable, err)
	}
	if !c.Actionable() {
		return fmt.Errorf("command for %q (%s): %w", name, model, codec.ErrNotActionable)
	}

	current, _ := a.states.get(name)
	fields, err := c.Encode(current, desired)
	if err != nil {
		return fmt.Errorf("command for %q: %w", name, err)
	}

	switch protocol {
	case device.ProtocolZigbee2MQTT:
		payload, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("command for %q: %w", name, err)
		}
		topic := a.topics.Z2MSet(a.cfg.Z2MBase, name)
		if err := a.pub.Publish(topic, payload, a.cfg.QoS, false); err != nil {
			return fmt.Errorf("command for %q: %w", name, err)
		}
	case device.ProtocolTasmota:
		// Tasmota takes one command per field on its cmnd topics.
		for field, value := range fields {
			topic := a.topics.TasmotaCommand(name, field)
			if err := a.pub.Publish(topic, []byte(fmt.Sprint(value)), a.cfg.QoS, false); err != nil {
				return fmt.Errorf("command for %q: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("command for %q: %w: %s", name, device.ErrInvalidProtocol, protocol)
	}

	a.metrics.CommandPublished(string(protocol))
	a.logger.Debug("command published", "device", name, "model", string(model))
	return nil
}

// ChangeState looks the device up in the registry and publishes the
// desired state in its dialect. The device must be discovered and its
// model resolved.
func (a *Accessor) ChangeState(name string, desired codec.State) error {
	d, err := a.registry.Get(name)
	if err != nil {
		return err
	}
	if d.Model == device.ModelUnknown {
		return fmt.Errorf("command for %q: %w", name, device.ErrModelUnresolved)
	}
	return a.TriggerChangeState(d.Name, d.Protocol, d.Model, desired)
}

// ChangeStateAndWait publishes the desired state and blocks until the
// device reports a state satisfying it, the context ends, or the
// acknowledgement timeout elapses. Returns ErrAckTimeout when the device
// stays silent or keeps reporting a non-matching state.
func (a *Accessor) ChangeStateAndWait(ctx context.Context, name string, desired codec.State) error {
	w := a.waiters.add(name, desired)
	defer a.waiters.remove(name, w)

	if err := a.ChangeState(name, desired); err != nil {
		return err
	}

	timeout := a.cfg.AckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("command for %q: %w", name, ErrAckTimeout)
	}
}

// SwitchOptions shape a batch power change. At most one of the durations
// is normally set.
type SwitchOptions struct {
	// Countdown defers the whole change.
	Countdown time.Duration

	// OnTime turns the switch off again this long after turning it on.
	OnTime time.Duration

	// OffTime turns the switch on again this long after turning it off.
	OffTime time.Duration
}

// SwitchPowerChange drives a power change across a set of switches and
// returns the per-device outcome. A countdown defers the change; OnTime
// and OffTime schedule the reverse change after the given duration.
// Scheduling a timer for a device replaces any timer it already holds.
func (a *Accessor) SwitchPowerChange(names []string, on bool, opts SwitchOptions) map[string]error {
	results := make(map[string]error, len(names))
	if len(names) == 0 {
		return results
	}

	desired := switchState(on)
	for _, name := range names {
		name := name
		if opts.Countdown > 0 {
			a.timers.schedule(name, opts.Countdown, func() {
				if err := a.ChangeState(name, desired); err != nil {
					a.logger.Warn("deferred power change failed", "device", name, "error", err)
				}
			})
			results[name] = nil
			continue
		}

		err := a.ChangeState(name, desired)
		results[name] = err
		if err != nil {
			continue
		}

		if on && opts.OnTime > 0 {
			a.scheduleReverse(name, opts.OnTime, false)
		} else if !on && opts.OffTime > 0 {
			a.scheduleReverse(name, opts.OffTime, true)
		}
	}
	return results
}

// StopTimer cancels a pending deferred change for the device.
func (a *Accessor) StopTimer(name string) {
	a.timers.cancel(name)
}

func (a *Accessor) scheduleReverse(name string, delay time.Duration, on bool) {
	a.timers.schedule(name, delay, func() {
		if err := a.ChangeState(name, switchState(on)); err != nil {
			a.logger.Warn("scheduled power change failed", "device", name, "error", err)
		}
	})
}

func switchState(on bool) codec.State {
	return codec.Switch{Power: codec.PowerP(codec.PowerOf(on))}
}

// IsNotActionable reports whether err means the target accepts no
// commands.
func IsNotActionable(err error) bool {
	return errors.Is(err, codec.ErrNotActionable)
}
