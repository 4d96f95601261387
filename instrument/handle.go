package instrument

import (
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
)

// Handle is an instrument bound to one label set.
//
// Contract:
// - Concurrency: Add, Record and Value are safe for concurrent use; each
//   mutation is a single atomic step relative to other calls on the handle.
// - Errors: mutations never fail and never panic; invalid input is dropped.
type Handle struct {
	inst   Instrument
	labels attribute.Set
	bits   atomic.Uint64
}

func newHandle(inst Instrument, labels attribute.Set) *Handle {
	return &Handle{inst: inst, labels: labels}
}

// Instrument returns the descriptor the handle was bound from.
func (h *Handle) Instrument() Instrument {
	return h.inst
}

// Labels returns the canonical label set of the handle.
func (h *Handle) Labels() attribute.Set {
	return h.labels
}

// Add accumulates delta. Negative deltas on a Counter are dropped.
func (h *Handle) Add(delta float64) {
	if !finite(delta) {
		return
	}
	if delta < 0 && h.inst.Monotonic() {
		return
	}
	for {
		old := h.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if h.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Record overwrites the value. It only applies to Gauge instruments.
func (h *Handle) Record(value float64) {
	if !finite(value) || h.inst.Kind != Gauge {
		return
	}
	h.bits.Store(math.Float64bits(value))
}

// Value returns the current value.
func (h *Handle) Value() float64 {
	return math.Float64frombits(h.bits.Load())
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
