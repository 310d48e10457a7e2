// Package message defines the envelope that flows through the pipeline and
// the bounded queues that connect its stages.
//
// A Message starts raw: the ingestor stamps it with a type, a protocol and
// the device name read from the topic, and attaches the untouched payload.
// Each pipeline stage refines it, until Canonical holds a codec state or the
// message is dropped. Predicates select messages for dispatch routes and
// compose with All and Any.
//
// Queues are strictly FIFO with blocking Put and Get; that, plus a single
// consumer per queue, is what gives the pipeline per-device ordering without
// any per-device machinery.
package message
