package codec

import (
	"fmt"
	"sync"

	"github.com/arnowe/homewire/internal/device"
)

type key struct {
	protocol device.Protocol
	model    device.Model
}

// Registry maps (protocol, model) pairs to codecs. Registration order is
// preserved per protocol because it decides ties during signature-based
// model resolution: the first registered match wins.
//
// All public methods are safe for concurrent use. Registration normally
// happens once at startup.
type Registry struct {
	mu     sync.RWMutex
	codecs map[key]*Codec
	order  []key
}

// NewRegistry creates an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[key]*Codec)}
}

// Register adds a codec for a protocol and model pair.
// Returns ErrCodecExists if the pair already has a codec.
func (r *Registry) Register(protocol device.Protocol, model device.Model, c Codec) error {
	if c.Decode == nil {
		return fmt.Errorf("codec for %s/%s: decoder is required", protocol, model)
	}

	k := key{protocol, model}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codecs[k]; ok {
		return fmt.Errorf("%w: %s/%s", ErrCodecExists, protocol, model)
	}
	r.codecs[k] = &c
	r.order = append(r.order, k)
	return nil
}

// Lookup returns the codec for a protocol and model pair, or
// ErrCodecNotFound.
func (r *Registry) Lookup(protocol device.Protocol, model device.Model) (*Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[key{protocol, model}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrCodecNotFound, protocol, model)
	}
	return c, nil
}

// ResolveModels returns, in registration order, every model of the given
// protocol whose signature is fully contained in the payload's field names.
// An empty result means no model claims the payload; more than one result
// means the signatures overlap and the caller should take the first.
func (r *Registry) ResolveModels(protocol device.Protocol, fields map[string]any) []device.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []device.Model
	for _, k := range r.order {
		if k.protocol != protocol {
			continue
		}
		c := r.codecs[k]
		if len(c.Signature) == 0 {
			continue
		}
		if containsAll(fields, c.Signature) {
			matches = append(matches, k.model)
		}
	}
	return matches
}

func containsAll(fields map[string]any, names []string) bool {
	for _, n := range names {
		if _, ok := fields[n]; !ok {
			return false
		}
	}
	return true
}
