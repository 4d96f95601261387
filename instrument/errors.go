package instrument

import "errors"

// Sentinel errors for instrument definitions.
var (
	// ErrEmptyName indicates Instrument.Name is empty.
	ErrEmptyName = errors.New("instrument: name is required")

	// ErrInvalidKind indicates Instrument.Kind is not a known kind.
	ErrInvalidKind = errors.New("instrument: invalid kind")
)
