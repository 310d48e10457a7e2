package accessor

import (
	"sync"

	"github.com/arnowe/homewire/internal/codec"
)

// waiter holds a pending acknowledgement: the state a caller wants a
// device to reach and the channel that delivers the matching report.
type waiter struct {
	want codec.State
	ch   chan codec.State
}

// waiterSet tracks outstanding acknowledgement waits per device. A
// device may carry several waits at once when callers overlap.
type waiterSet struct {
	mu      sync.Mutex
	pending map[string][]*waiter
}

func newWaiterSet() *waiterSet {
	return &waiterSet{pending: make(map[string][]*waiter)}
}

// add registers a wait for the given device and returns the waiter.
// The returned channel has capacity one so notify never blocks.
func (s *waiterSet) add(device string, want codec.State) *waiter {
	w := &waiter{want: want, ch: make(chan codec.State, 1)}
	s.mu.Lock()
	s.pending[device] = append(s.pending[device], w)
	s.mu.Unlock()
	return w
}

// remove drops a waiter, typically after a timeout or cancellation.
func (s *waiterSet) remove(device string, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.pending[device]
	for i, cand := range list {
		if cand == w {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.pending, device)
	} else {
		s.pending[device] = list
	}
}

// notify delivers a reported state to every waiter it satisfies and
// removes the satisfied waiters from the set.
func (s *waiterSet) notify(device string, got codec.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.pending[device]
	if len(list) == 0 {
		return
	}

	remaining := list[:0]
	for _, w := range list {
		if codec.Satisfies(got, w.want) {
			w.ch <- got
		} else {
			remaining = append(remaining, w)
		}
	}
	if len(remaining) == 0 {
		delete(s.pending, device)
	} else {
		s.pending[device] = remaining
	}
}
