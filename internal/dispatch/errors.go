package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("dispatch: already started")

	// ErrNotRunning is returned when a message is submitted to a
	// dispatcher that is not accepting work.
	ErrNotRunning = errors.New("dispatch: not running")
)
