// Package observe instruments HTTP request handling and exports the result
// to append-only log files.
//
// A Telemetry value is the single owned telemetry context of a process. It
// is built once by New from a Config and holds the bound-instrument cache,
// the middleware Chain, the span tree builder, the periodic export Driver
// and, optionally, a bridge that mirrors the cache into an OpenTelemetry
// MeterProvider. Shutdown releases all of it.
//
// Request flow: Chain.Wrap runs the configured stages in registration order
// at request entry. Stages mutate bound handles directly or register a
// one-shot finish observer on the Exchange. Once the wrapped handler has
// returned and the status is final, the chain fires the observers in
// registration order. Independently, the Driver snapshots the cache on a
// fixed interval and appends the records to the metrics log.
//
// Stages never fail a request: a sampling error turns the stage into a
// no-op for that request, and a panicking stage is recovered at the stage
// boundary before the chain proceeds.
package observe
