package accessor

import (
	"sync"
	"time"
)

// timerManager schedules deferred switch changes. Each device holds at
// most one pending timer; scheduling a new one replaces the old.
type timerManager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerManager() *timerManager {
	return &timerManager{timers: make(map[string]*time.Timer)}
}

// schedule arranges fn to run after delay, replacing any pending timer
// for the device.
func (t *timerManager) schedule(device string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[device]; ok {
		old.Stop()
	}
	t.timers[device] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.timers, device)
		t.mu.Unlock()
		fn()
	})
}

// cancel stops a pending timer for the device, if any.
func (t *timerManager) cancel(device string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[device]; ok {
		old.Stop()
		delete(t.timers, device)
	}
}

// cancelAll stops every pending timer. Used during shutdown.
func (t *timerManager) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for device, timer := range t.timers {
		timer.Stop()
		delete(t.timers, device)
	}
}
