package message

import "sync"

// Queue is a bounded FIFO of messages connecting two pipeline stages.
// Put blocks while the queue is full, Get blocks while it is empty, so a
// slow consumer applies backpressure instead of dropping traffic.
//
// After Close, Put fails with ErrQueueClosed but Get keeps draining what was
// accepted before the close; once drained it fails too. Ordering is
// preserved across the close.
type Queue struct {
	ch   chan *Message
	done chan struct{}
	once sync.Once
}

// NewQueue creates a queue holding at most capacity messages.
// Capacity must be at least 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan *Message, capacity),
		done: make(chan struct{}),
	}
}

// Put appends a message, blocking while the queue is full.
// Returns ErrQueueClosed once the queue is closed.
func (q *Queue) Put(m *Message) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- m:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Get removes the oldest message, blocking while the queue is empty.
// After Close it keeps returning buffered messages until the queue is
// drained, then returns ErrQueueClosed.
func (q *Queue) Get() (*Message, error) {
	select {
	case m := <-q.ch:
		return m, nil
	case <-q.done:
		// Drain what was accepted before the close.
		select {
		case m := <-q.ch:
			return m, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

// Close stops the queue from accepting messages. Safe to call more than
// once. Messages already queued remain retrievable via Get.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.ch)
}
