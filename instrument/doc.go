// Package instrument provides bound metric instruments for request telemetry.
//
// An Instrument is an immutable descriptor (name, description, unit, kind).
// A Handle is that instrument bound to one canonical label set, and owns a
// float64 accumulator. The Cache hands out at most one Handle per distinct
// (instrument, label set) pair and keeps it for its own lifetime; there is no
// eviction, so label values must come from a bounded set such as the routes
// an application serves.
//
// Handles are safe for concurrent use. Add and Record never fail: invalid
// measurements (NaN, infinities, a negative delta on a monotonic counter)
// are dropped silently.
package instrument
