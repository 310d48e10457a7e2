// Package metrics provides Prometheus instrumentation for Homewire.
//
// All counters live on a private registry exposed at /metrics by Server.
// A nil *Metrics is a valid no-op recorder, so instrumented components take
// a *Metrics unconditionally and the flag that disables metrics only
// decides whether New is called.
package metrics
