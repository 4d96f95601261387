package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrMissingMetricsPath indicates Config.MetricsPath is empty.
	ErrMissingMetricsPath = errors.New("observe: metrics path is required")

	// ErrMissingSpansPath indicates file tracing without Config.SpansPath.
	ErrMissingSpansPath = errors.New("observe: spans path is required for file tracing")

	// ErrInvalidInterval indicates a non-positive export interval.
	ErrInvalidInterval = errors.New("observe: export interval must be positive")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsBridge indicates an unknown metrics bridge exporter name.
	ErrInvalidMetricsBridge = errors.New("observe: invalid metrics bridge exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")

	// ErrUnknownStage indicates a stage name with no registered constructor.
	ErrUnknownStage = errors.New("observe: unknown stage")
)

// Runtime errors.
var (
	// ErrSinkSetup indicates a telemetry sink could not be prepared.
	// Telemetry cannot be provided without it, so startup must abort.
	ErrSinkSetup = errors.New("observe: sink setup failed")

	// ErrNilCache indicates a nil instrument cache was provided.
	ErrNilCache = errors.New("observe: instrument cache is nil")

	// ErrNilMeter indicates a nil meter was provided to NewBridge.
	ErrNilMeter = errors.New("observe: meter is nil")
)

// ValidTracingExporters lists valid tracing exporter names.
var ValidTracingExporters = []string{"file", "stdout", "otlp", "none", ""}

// ValidMetricsBridges lists valid metrics bridge exporter names.
var ValidMetricsBridges = []string{"stdout", "otlp", "prometheus", "none", ""}

// ValidLogLevels lists valid log level names.
var ValidLogLevels = []string{"debug", "info", "warn", "error", ""}

// RedactedFields lists field keys that are automatically redacted in logs.
var RedactedFields = []string{
	"authorization",
	"cookie",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"credential",
}
