package accessor

import "errors"

// ErrAckTimeout is returned when a commanded device does not report a
// confirming state within the wait window.
var ErrAckTimeout = errors.New("accessor: acknowledgement timeout")
