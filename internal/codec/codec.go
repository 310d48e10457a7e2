package codec

// DecodeFunc converts a raw dialect payload into a canonical state. The tag
// carries dialect routing detail that is not part of the payload itself (the
// Tasmota topic leaf, "STATE" or "SENSOR"); zigbee2mqtt decoders ignore it.
//
// Decoders return ErrSchemaMismatch when the payload does not have the shape
// the model requires, and ErrPayloadIgnored when the payload is valid but
// carries nothing canonical.
type DecodeFunc func(data []byte, tag string) (State, error)

// EncodeFunc converts a desired canonical state into the dialect field map a
// command publication carries. Only the set fields of desired are encoded.
// current is the last known state of the device and lets an encoder derive
// fields the dialect requires but the caller left unset; encoders that need
// no context ignore it.
type EncodeFunc func(current, desired State) (map[string]any, error)

// Codec binds one device model to its wire dialect: how to decode its state
// payloads, how to encode commands for it, and the payload signature used to
// resolve the model from traffic alone.
//
// Encode is nil for sensor-only models: they report state but accept no
// commands.
type Codec struct {
	Signature []string
	Decode    DecodeFunc
	Encode    EncodeFunc
}

// Actionable reports whether the model accepts commands.
func (c *Codec) Actionable() bool {
	return c != nil && c.Encode != nil
}
