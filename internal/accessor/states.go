package accessor

import (
	"sync"

	"github.com/arnowe/homewire/internal/codec"
)

// stateCache keeps the last canonical state observed per device. Encoders
// that need context read it; callers can inspect it through LastState.
type stateCache struct {
	mu     sync.RWMutex
	states map[string]codec.State
}

func newStateCache() *stateCache {
	return &stateCache{states: make(map[string]codec.State)}
}

func (c *stateCache) put(device string, s codec.State) {
	c.mu.Lock()
	c.states[device] = s
	c.mu.Unlock()
}

func (c *stateCache) get(device string) (codec.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[device]
	return s, ok
}
