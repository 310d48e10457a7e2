package dispatch

import (
	"errors"
	"sync"

	"github.com/arnowe/homewire/internal/message"
)

// Logger defines the logging interface used by the Dispatcher.
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

// Recorder counts dispatch outcomes. The metrics package provides the real
// implementation; a nil-safe noop is used otherwise.
type Recorder interface {
	Dispatched(dispatcher, outcome string)
	HandlerFailure(dispatcher string)
}

type noopRecorder struct{}

func (noopRecorder) Dispatched(string, string) {}
func (noopRecorder) HandlerFailure(string)     {}

// Dispatch outcomes reported to the Recorder.
const (
	OutcomeHandled   = "handled"
	OutcomeForwarded = "forwarded"
	OutcomeUnmatched = "unmatched"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// Handler processes a matched message. A non-nil result is forwarded to the
// dispatcher's output queue; nil means the message was consumed.
type Handler func(*message.Message) *message.Message

// Route pairs a predicate with a handler. Routes are evaluated in order and
// the first match wins.
type Route struct {
	When   message.Predicate
	Handle Handler
}

// State is the dispatcher lifecycle state.
type State string

const (
	StateCreated  State = "created"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Dispatcher pulls messages off one queue and routes each to the first
// matching handler. A single worker goroutine does all the work, so
// messages are processed strictly in arrival order.
//
// Handlers may return a refined message, which is forwarded to the output
// queue when one is set. A panicking handler loses only the message it was
// processing; the worker keeps going.
type Dispatcher struct {
	name   string
	in     *message.Queue
	out    *message.Queue
	routes []Route
	def    Handler

	mu      sync.Mutex
	state   State
	force   chan struct{}
	stopped chan struct{}

	logger   Logger
	recorder Recorder
}

// NewDispatcher creates a dispatcher reading from in. out may be nil when
// no route forwards anything.
func NewDispatcher(name string, in *message.Queue, out *message.Queue, routes []Route) *Dispatcher {
	return &Dispatcher{
		name:     name,
		in:       in,
		out:      out,
		routes:   routes,
		state:    StateCreated,
		force:    make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// SetLogger sets the logger. Call before Start.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetRecorder sets the outcome recorder. Call before Start.
func (d *Dispatcher) SetRecorder(rec Recorder) {
	d.recorder = rec
}

// SetDefault sets the handler invoked when no route matches a message.
// Call before Start. Without one, unmatched messages are dropped with a
// debug log.
func (d *Dispatcher) SetDefault(h Handler) {
	d.def = h
}

// Name returns the dispatcher's name.
func (d *Dispatcher) Name() string { return d.name }

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// In returns the input queue. Producers submit through it.
func (d *Dispatcher) In() *message.Queue { return d.in }

// Out returns the output queue, nil when the dispatcher only consumes.
func (d *Dispatcher) Out() *message.Queue { return d.out }

// Submit enqueues a message for processing, blocking while the input queue
// is full. Returns ErrNotRunning once the dispatcher is stopping or stopped.
func (d *Dispatcher) Submit(m *message.Message) error {
	if err := d.in.Put(m); err != nil {
		if errors.Is(err, message.ErrQueueClosed) {
			return ErrNotRunning
		}
		return err
	}
	return nil
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateCreated {
		return ErrAlreadyStarted
	}
	d.state = StateRunning
	go d.run()
	d.logger.Info("dispatcher started", "dispatcher", d.name)
	return nil
}

// Stop closes the input queue, waits for the worker to drain what was
// already accepted, and returns. Stopping a dispatcher that was never
// started just closes its queue. Safe to call more than once.
func (d *Dispatcher) Stop() {
	if !d.beginStop() {
		return
	}
	<-d.stopped
	d.logger.Info("dispatcher stopped", "dispatcher", d.name)
}

// ForceStop closes the input queue and tells the worker to abandon any
// messages still queued. It returns without waiting for an in-flight
// handler; the dispatcher reports StateStopping until the worker exits on
// its own. Queued messages are lost.
func (d *Dispatcher) ForceStop() {
	d.mu.Lock()
	select {
	case <-d.force:
	default:
		close(d.force)
	}
	d.mu.Unlock()

	if !d.beginStop() {
		return
	}
	d.logger.Info("dispatcher force-stopped", "dispatcher", d.name)
}

// beginStop moves toward shutdown and reports whether a worker exists to
// wait for. A dispatcher still in StateCreated has no worker and goes
// straight to stopped.
func (d *Dispatcher) beginStop() bool {
	d.mu.Lock()
	launched := d.state != StateCreated
	switch d.state {
	case StateCreated:
		d.state = StateStopped
	case StateRunning:
		d.state = StateStopping
	}
	d.mu.Unlock()
	d.in.Close()
	return launched
}

func (d *Dispatcher) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Dispatcher) run() {
	defer func() {
		d.setState(StateStopped)
		close(d.stopped)
	}()
	for {
		m, err := d.in.Get()
		if err != nil {
			return
		}
		select {
		case <-d.force:
			return
		default:
		}
		d.process(m)
	}
}

func (d *Dispatcher) process(m *message.Message) {
	for i := range d.routes {
		r := &d.routes[i]
		if !r.When(m) {
			continue
		}
		d.handle(r.Handle, m)
		return
	}

	if d.def != nil {
		d.handle(d.def, m)
		return
	}

	d.logger.Debug("no route matched",
		"dispatcher", d.name, "id", m.ID, "type", m.Type, "device", m.DeviceName)
	d.recorder.Dispatched(d.name, OutcomeUnmatched)
}

// handle runs one handler and settles the message's outcome.
func (d *Dispatcher) handle(h Handler, m *message.Message) {
	result, ok := d.invoke(h, m)
	if !ok {
		d.recorder.HandlerFailure(d.name)
		d.recorder.Dispatched(d.name, OutcomeFailed)
		return
	}
	if result == nil || d.out == nil {
		d.recorder.Dispatched(d.name, OutcomeHandled)
		return
	}
	if err := d.out.Put(result); err != nil {
		d.logger.Warn("output queue rejected message",
			"dispatcher", d.name, "id", m.ID, "error", err)
		d.recorder.Dispatched(d.name, OutcomeDropped)
		return
	}
	d.recorder.Dispatched(d.name, OutcomeForwarded)
}

// invoke runs a handler, converting a panic into a logged failure so one
// bad message cannot take the worker down.
func (d *Dispatcher) invoke(h Handler, m *message.Message) (result *message.Message, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				"dispatcher", d.name, "id", m.ID, "device", m.DeviceName, "panic", r)
			result, ok = nil, false
		}
	}()
	return h(m), true
}
