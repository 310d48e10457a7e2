// Package codec translates between wire dialects and canonical device
// states.
//
// Each supported device model has one Codec: a decoder that turns the
// model's raw payloads into a canonical State variant, an optional encoder
// that turns a desired State into the dialect fields a command carries, and
// a payload signature used to resolve a device's model from its traffic when
// no discovery announcement named it.
//
// Canonical states are small structs with pointer fields, so partially
// known and partially desired states are expressible. Satisfies compares a
// decoded state against a desired one to detect command acknowledgement.
//
// The Registry keys codecs by (protocol, model). NewDefaultRegistry wires
// up every supported model; registration order breaks signature ties in
// favour of the earlier entry.
package codec
