package message

import "errors"

// ErrQueueClosed is returned by Queue.Put after Close, and by Queue.Get once
// a closed queue has been drained.
var ErrQueueClosed = errors.New("message: queue closed")
