// Package pipeline turns raw broker traffic into canonical device messages.
//
// The ingestor subscribes to both dialects' topic families and classifies
// every delivery by topic alone. Three single-worker stages then refine the
// message in sequence:
//
//	discover:  register announcements, drop traffic from unknown devices
//	resolve:   attach a model, from discovery data or the payload signature
//	normalize: decode the payload into a canonical state, or drop it
//
// A message leaving Refined() always carries a canonical state; everything
// that cannot reach that point is dropped with a metric and, the first time
// per device, a log line. Because each queue has exactly one consumer,
// refined messages appear in broker delivery order.
//
// Attach exactly one consumer dispatcher to Refined(); fan out to multiple
// handlers with routes on that consumer.
package pipeline
