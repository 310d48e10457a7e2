package codec

import "errors"

// Domain errors for the codec package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, codec.ErrSchemaMismatch) {
//	    // drop the message with a diagnostic
//	}
var (
	// ErrSchemaMismatch is returned when a payload does not match the shape
	// the codec expects for its model.
	ErrSchemaMismatch = errors.New("codec: schema mismatch")

	// ErrPayloadIgnored is returned when a payload is recognised as valid
	// for the model but carries no canonical state. It is not a fault.
	ErrPayloadIgnored = errors.New("codec: payload ignored")

	// ErrNotActionable is returned when a command targets a model that has
	// no encoder, or a state the encoder cannot express.
	ErrNotActionable = errors.New("codec: not actionable")

	// ErrCodecNotFound is returned when no codec is registered for a
	// protocol and model pair.
	ErrCodecNotFound = errors.New("codec: not found")

	// ErrCodecExists is returned when registering a codec for a pair that
	// already has one.
	ErrCodecExists = errors.New("codec: already registered")
)
