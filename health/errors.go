package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrExportFailed indicates the latest metrics export failed.
	ErrExportFailed = errors.New("health: metrics export failed")

	// ErrSinkNotWritable indicates a telemetry log cannot be appended to.
	ErrSinkNotWritable = errors.New("health: sink not writable")
)
