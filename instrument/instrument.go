package instrument

import (
	"fmt"
	"strings"
)

// Kind is the value semantics of an instrument.
type Kind int

const (
	// Counter is a monotonic sum. Negative deltas are dropped.
	Counter Kind = iota
	// UpDownCounter is a sum that may decrease.
	UpDownCounter
	// Gauge holds the last recorded value.
	Gauge
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case UpDownCounter:
		return "updowncounter"
	case Gauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Instrument describes a metric. It is immutable once created; two
// instruments with the same Name share bound handles in a Cache.
type Instrument struct {
	Name        string
	Description string
	Unit        string
	Kind        Kind
}

// Validate checks the instrument definition.
func (i Instrument) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	switch i.Kind {
	case Counter, UpDownCounter, Gauge:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(i.Kind))
	}
}

// Monotonic reports whether the instrument only accepts non-negative deltas.
func (i Instrument) Monotonic() bool {
	return i.Kind == Counter
}
