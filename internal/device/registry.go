package device

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the set of devices observed on the broker, keyed by name.
// Entries are created by passive discovery: the first observation of a name
// wins, later observations only confirm or enrich it.
//
// An optional Repository mirrors the current registry contents so a restart
// starts with the last known devices. The in-memory map stays authoritative;
// persistence failures are logged and do not affect lookups.
//
// All public methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	repo    Repository
	logger  Logger
}

// NewRegistry creates an empty device registry.
// repo may be nil, in which case nothing is persisted.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		repo:    repo,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Restore loads previously persisted devices into the registry.
// Already-known names are left untouched. No-op without a repository.
func (r *Registry) Restore(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	devices, err := r.repo.List(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for i := range devices {
		d := devices[i]
		if _, ok := r.devices[d.Name]; ok {
			continue
		}
		r.devices[d.Name] = &d
		restored++
	}
	r.logger.Info("device registry restored", "count", restored)
	return nil
}

// Discover records an observation of a device name. The first observation
// creates the entry; later observations never change protocol or an already
// resolved model, they only update LastSeen and fill gaps (an empty model,
// an empty address).
//
// It reports whether the observation created a new entry.
func (r *Registry) Discover(name string, protocol Protocol, model Model, address string) (bool, error) {
	if name == "" {
		return false, ErrInvalidName
	}
	if !validProtocol(protocol) {
		return false, ErrInvalidProtocol
	}

	now := time.Now().UTC()

	r.mu.Lock()
	existing, ok := r.devices[name]
	if ok {
		existing.LastSeen = now
		if existing.Model == ModelUnknown && model != ModelUnknown {
			existing.Model = model
		}
		if existing.Address == "" && address != "" {
			existing.Address = address
		}
		snapshot := *existing
		r.mu.Unlock()
		r.persist(snapshot)
		return false, nil
	}

	d := &Device{
		Name:      name,
		Protocol:  protocol,
		Model:     model,
		Address:   address,
		FirstSeen: now,
		LastSeen:  now,
	}
	r.devices[name] = d
	snapshot := *d
	r.mu.Unlock()

	r.logger.Info("device discovered", "name", name, "protocol", protocol, "model", model)
	r.persist(snapshot)
	return true, nil
}

// ResolveModel sets the model of an already-known device. Resolution is
// monotonic: once a model is set, later calls with a different model are
// ignored and logged at debug level.
func (r *Registry) ResolveModel(name string, model Model) error {
	if model == ModelUnknown {
		return nil
	}

	r.mu.Lock()
	d, ok := r.devices[name]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	if d.Model != ModelUnknown {
		kept := d.Model
		r.mu.Unlock()
		if kept != model {
			r.logger.Debug("model already resolved, keeping first",
				"name", name, "kept", kept, "ignored", model)
		}
		return nil
	}
	d.Model = model
	snapshot := *d
	r.mu.Unlock()

	r.logger.Info("device model resolved", "name", name, "model", model)
	r.persist(snapshot)
	return nil
}

// Touch updates a device's LastSeen timestamp.
// Unknown names are ignored.
func (r *Registry) Touch(name string) {
	r.mu.Lock()
	if d, ok := r.devices[name]; ok {
		d.LastSeen = time.Now().UTC()
	}
	r.mu.Unlock()
}

// Get returns a copy of the device with the given name, or
// ErrDeviceNotFound.
func (r *Registry) Get(name string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[name]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return *d, nil
}

// List returns copies of all known devices in no particular order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d)
	}
	return devices
}

// Names returns the names of all known devices in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	return names
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *Registry) persist(d Device) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Upsert(context.Background(), &d); err != nil {
		r.logger.Warn("device persistence failed", "name", d.Name, "error", err)
	}
}

func validProtocol(p Protocol) bool {
	for _, known := range AllProtocols() {
		if p == known {
			return true
		}
	}
	return false
}
