package exporters

import "errors"

var (
	// ErrEmptyPath indicates a sink was constructed without a file path.
	ErrEmptyPath = errors.New("exporters: file path is required")

	// ErrSinkClosed indicates an export after Shutdown.
	ErrSinkClosed = errors.New("exporters: sink is shut down")

	// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates an unknown exporter name.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)
