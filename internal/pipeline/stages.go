package pipeline

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/dispatch"
	"github.com/arnowe/homewire/internal/message"
)

// Stage names used in logs and drop metrics.
const (
	stageDiscover  = "discover"
	stageResolve   = "resolve"
	stageNormalize = "normalize"
)

// Drop reasons used in metrics.
const (
	reasonSchemaMismatch = "schema_mismatch"
	reasonUnknownDevice  = "unknown_device"
	reasonUnknownModel   = "unknown_model"
	reasonIgnored        = "ignored"
	reasonQueueClosed    = "queue_closed"
)

// StateRequester asks a device to re-publish its state. The accessor
// satisfies it; the discovery stage uses it to prime the states of freshly
// announced devices.
type StateRequester interface {
	TriggerGetState(name string, protocol device.Protocol, model device.Model) error
}

// discoverRoutes builds the first stage: discovery announcements register
// devices and become a canonical Roster; everything else only passes when
// its device is already known. State before discovery is meaningless, so
// traffic from unregistered devices is dropped here.
func (p *Pipeline) discoverRoutes() []dispatch.Route {
	return []dispatch.Route{
		{
			When:   message.IsDiscovery(),
			Handle: p.handleDiscovery,
		},
		{
			When: message.ForDevices("*"),
			Handle: func(m *message.Message) *message.Message {
				if _, err := p.registry.Get(m.DeviceName); err != nil {
					p.dropOnce(stageDiscover, reasonUnknownDevice, m)
					return nil
				}
				p.registry.Touch(m.DeviceName)
				return m
			},
		},
	}
}

func (p *Pipeline) handleDiscovery(m *message.Message) *message.Message {
	var names []string
	switch m.Protocol {
	case device.ProtocolZigbee2MQTT:
		announced, err := parseZ2MRoster(m.Raw.Data)
		if err != nil {
			p.logger.Warn("discovery payload rejected",
				"protocol", m.Protocol, "error", err)
			p.metrics.Dropped(stageDiscover, reasonSchemaMismatch)
			return nil
		}
		for _, a := range announced {
			names = append(names, a.name)
			p.admit(a.name, m.Protocol, a.model, a.address)
		}
	case device.ProtocolTasmota:
		a, err := parseTasmotaConfig(m.Raw.Data)
		if err != nil {
			p.logger.Warn("discovery payload rejected",
				"protocol", m.Protocol, "error", err)
			p.metrics.Dropped(stageDiscover, reasonSchemaMismatch)
			return nil
		}
		names = append(names, a.name)
		p.admit(a.name, m.Protocol, a.model, a.address)
	default:
		p.metrics.Dropped(stageDiscover, reasonIgnored)
		return nil
	}

	m.Canonical = codec.Roster{DeviceNames: names}
	return m
}

// admit registers one announced device and, when it is new and actionable,
// asks it to publish its current state.
func (p *Pipeline) admit(name string, protocol device.Protocol, model device.Model, address string) {
	created, err := p.registry.Discover(name, protocol, model, address)
	if err != nil {
		p.logger.Warn("device registration failed",
			"device", name, "protocol", protocol, "error", err)
		return
	}
	if model != device.ModelUnknown {
		if err := p.registry.ResolveModel(name, model); err != nil {
			p.logger.Debug("announced model not applied", "device", name, "error", err)
		}
	}
	if created && p.requester != nil {
		if err := p.requester.TriggerGetState(name, protocol, model); err != nil {
			p.logger.Debug("state request after discovery failed",
				"device", name, "error", err)
		}
	}
}

// announced is one device extracted from a discovery payload.
type announced struct {
	name    string
	model   device.Model
	address string
}

// parseZ2MRoster decodes the zigbee2mqtt bridge's device list. The
// coordinator entry is the bridge itself and is skipped.
func parseZ2MRoster(data []byte) ([]announced, error) {
	var entries []struct {
		FriendlyName string `json:"friendly_name"`
		IEEEAddress  string `json:"ieee_address"`
		Type         string `json:"type"`
		Definition   *struct {
			Model string `json:"model"`
		} `json:"definition"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	var out []announced
	for _, e := range entries {
		if e.Type == "Coordinator" || e.FriendlyName == "" {
			continue
		}
		a := announced{name: e.FriendlyName, address: e.IEEEAddress}
		if e.Definition != nil {
			a.model = device.Model(e.Definition.Model)
		}
		out = append(out, a)
	}
	return out, nil
}

// parseTasmotaConfig decodes one Tasmota discovery config document. The
// "t" field is the device's topic and therefore its name on the command
// and telemetry topics.
func parseTasmotaConfig(data []byte) (announced, error) {
	var cfg struct {
		Topic      string `json:"t"`
		DeviceName string `json:"dn"`
		Model      string `json:"md"`
		MAC        string `json:"mac"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return announced{}, err
	}
	if cfg.Topic == "" {
		return announced{}, errors.New("discovery config missing topic")
	}
	return announced{
		name:    cfg.Topic,
		model:   device.Model(cfg.Model),
		address: cfg.MAC,
	}, nil
}

// resolveRoutes builds the second stage: state reports from devices with an
// unresolved model get one resolved from the payload's field names.
func (p *Pipeline) resolveRoutes() []dispatch.Route {
	return []dispatch.Route{
		{
			When:   message.IsState(),
			Handle: p.handleResolve,
		},
		{
			// Availability and discovery messages carry no payload shape
			// to resolve; pass them through.
			When:   message.ForDevices("*"),
			Handle: p.stampModel,
		},
	}
}

func (p *Pipeline) handleResolve(m *message.Message) *message.Message {
	d, err := p.registry.Get(m.DeviceName)
	if err != nil {
		p.dropOnce(stageResolve, reasonUnknownDevice, m)
		return nil
	}
	if d.Model != device.ModelUnknown {
		m.Model = d.Model
		return m
	}

	var fields map[string]any
	if err := json.Unmarshal(m.Raw.Data, &fields); err != nil {
		p.dropOnce(stageResolve, reasonUnknownModel, m)
		return nil
	}
	matches := p.codecs.ResolveModels(m.Protocol, fields)
	if len(matches) == 0 {
		p.dropOnce(stageResolve, reasonUnknownModel, m)
		return nil
	}
	if len(matches) > 1 {
		p.logger.Debug("payload signature matches several models, taking first",
			"device", m.DeviceName, "matches", len(matches))
	}
	if err := p.registry.ResolveModel(m.DeviceName, matches[0]); err != nil {
		p.dropOnce(stageResolve, reasonUnknownDevice, m)
		return nil
	}
	m.Model = matches[0]
	return m
}

func (p *Pipeline) stampModel(m *message.Message) *message.Message {
	if d, err := p.registry.Get(m.DeviceName); err == nil {
		m.Model = d.Model
	}
	return m
}

// normalizeRoutes builds the third stage: every forwarded message carries a
// canonical state, everything else is dropped here.
func (p *Pipeline) normalizeRoutes() []dispatch.Route {
	return []dispatch.Route{
		{
			When:   message.IsState(),
			Handle: p.handleNormalize,
		},
		{
			When: message.IsAvailability(),
			Handle: func(m *message.Message) *message.Message {
				av, err := codec.ParseAvailability(m.Raw.Data)
				if err != nil {
					p.logger.Warn("availability payload rejected",
						"device", m.DeviceName, "error", err)
					p.metrics.Dropped(stageNormalize, reasonSchemaMismatch)
					return nil
				}
				m.Canonical = av
				return m
			},
		},
		{
			// Discovery messages arrive here already carrying a Roster.
			When: message.IsDiscovery(),
			Handle: func(m *message.Message) *message.Message {
				if !m.Refined() {
					p.metrics.Dropped(stageNormalize, reasonIgnored)
					return nil
				}
				return m
			},
		},
	}
}

func (p *Pipeline) handleNormalize(m *message.Message) *message.Message {
	c, err := p.codecs.Lookup(m.Protocol, m.Model)
	if err != nil {
		p.dropOnce(stageNormalize, reasonUnknownModel, m)
		return nil
	}
	state, err := c.Decode(m.Raw.Data, m.Raw.Tag)
	if err != nil {
		if errors.Is(err, codec.ErrPayloadIgnored) {
			p.metrics.Dropped(stageNormalize, reasonIgnored)
			return nil
		}
		p.logger.Debug("state payload rejected",
			"device", m.DeviceName, "model", m.Model, "error", err)
		p.dropOnce(stageNormalize, reasonSchemaMismatch, m)
		return nil
	}
	m.Canonical = state
	p.metrics.Normalized(string(m.Protocol), string(m.Model))
	return m
}

// diagRelogAfter is how long a drop diagnostic stays muted after it was
// last logged. A device that goes quiet and misbehaves again later is
// diagnosed again.
const diagRelogAfter = time.Hour

// dropOnce drops a message, logging at most one occurrence per device,
// stage and reason within diagRelogAfter so a chatty unknown device cannot
// flood the log.
func (p *Pipeline) dropOnce(stage, reason string, m *message.Message) {
	p.metrics.Dropped(stage, reason)

	key := stage + "/" + reason + "/" + m.DeviceName
	now := time.Now()
	p.diagMu.Lock()
	last, seen := p.diagnosed[key]
	muted := seen && now.Sub(last) < diagRelogAfter
	if !muted {
		p.diagnosed[key] = now
	}
	p.diagMu.Unlock()
	if muted {
		return
	}
	p.logger.Warn("message dropped",
		"stage", stage, "reason", reason,
		"device", m.DeviceName, "protocol", m.Protocol, "type", m.Type)
}
