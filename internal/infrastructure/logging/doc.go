// Package logging wraps log/slog into Homewire's one logger.
//
// Every record carries the service name and version; level, format (json
// or text) and destination come from the logging section of config.yaml.
// Domain packages take a narrow Logger interface and this type satisfies
// all of them, so the process builds exactly one logger and hands it out.
//
// The diagnostic channel the pipeline drops messages into is this logger:
// a dropped message is a Warn, never an error returned to a caller.
//
// Do not log credentials. Broker passwords live in config and must never
// reach a log record.
package logging
