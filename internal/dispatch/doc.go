// Package dispatch provides the single-worker predicate dispatcher that
// pipeline stages and consumers are built from.
//
// A Dispatcher owns one input queue and an ordered list of routes. Its one
// worker goroutine takes messages in arrival order and hands each to the
// first route whose predicate matches, or to the default handler when no
// route does; a handler may return a refined message, which is forwarded to
// the output queue. Chaining dispatchers through queues yields a pipeline
// where every stage preserves order.
//
// Stop drains the input queue before returning; ForceStop abandons the
// queue and returns without waiting for an in-flight handler.
// Handler panics are recovered and logged, costing only the message being
// processed.
package dispatch
