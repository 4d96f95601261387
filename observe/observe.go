package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jonwraymond/reqprof/instrument"
	"github.com/jonwraymond/reqprof/observe/exporters"
	"github.com/jonwraymond/reqprof/procstat"
)

// Defaults applied by DefaultConfig.
const (
	DefaultServiceName      = "tracing-service"
	DefaultMetricsPath      = "data/metrics/metrics.log"
	DefaultSpansPath        = "data/traces/tracing.log"
	DefaultExportIntervalMs = 1000
)

// Config holds all configuration for Telemetry.
type Config struct {
	ServiceName      string        `koanf:"service_name" json:"service_name"`
	Version          string        `koanf:"version" json:"version"`
	MetricsPath      string        `koanf:"metrics_path" json:"metrics_path"`
	SpansPath        string        `koanf:"spans_path" json:"spans_path"`
	ExportIntervalMs int           `koanf:"export_interval_ms" json:"export_interval_ms"`
	ExcludedRoutes   []string      `koanf:"excluded_routes" json:"excluded_routes"`
	Stages           []string      `koanf:"stages" json:"stages"`
	Tracing          TracingConfig `koanf:"tracing" json:"tracing"`
	Metrics          MetricsConfig `koanf:"metrics" json:"metrics"`
	Logging          LoggingConfig `koanf:"logging" json:"logging"`
}

// TracingConfig configures the span tree stage and its exporter.
type TracingConfig struct {
	Enabled  bool   `koanf:"enabled" json:"enabled"`
	Exporter string `koanf:"exporter" json:"exporter"` // file|stdout|otlp|none
}

// MetricsConfig configures the optional OpenTelemetry bridge. The file
// sink is always on.
type MetricsConfig struct {
	Bridge string `koanf:"bridge" json:"bridge"` // stdout|otlp|prometheus|none
}

// LoggingConfig configures the process log.
type LoggingConfig struct {
	Enabled    bool   `koanf:"enabled" json:"enabled"`
	Level      string `koanf:"level" json:"level"` // debug|info|warn|error
	File       string `koanf:"file" json:"file"`   // empty means stderr
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ServiceName:      DefaultServiceName,
		MetricsPath:      DefaultMetricsPath,
		SpansPath:        DefaultSpansPath,
		ExportIntervalMs: DefaultExportIntervalMs,
		ExcludedRoutes:   []string{"/favicon.ico"},
		Stages:           DefaultStages(),
		Tracing:          TracingConfig{Enabled: true, Exporter: "file"},
		Metrics:          MetricsConfig{Bridge: "none"},
		Logging:          LoggingConfig{Enabled: true, Level: "info", MaxSizeMB: 100, MaxBackups: 3},
	}
}

// ExportInterval returns the export interval as a duration.
func (c *Config) ExportInterval() time.Duration {
	return time.Duration(c.ExportIntervalMs) * time.Millisecond
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.MetricsPath == "" {
		return ErrMissingMetricsPath
	}
	if c.ExportIntervalMs <= 0 {
		return fmt.Errorf("%w: %d ms", ErrInvalidInterval, c.ExportIntervalMs)
	}

	if c.Tracing.Enabled {
		if !slices.Contains(ValidTracingExporters, c.Tracing.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if (c.Tracing.Exporter == "file" || c.Tracing.Exporter == "") && c.SpansPath == "" {
			return ErrMissingSpansPath
		}
	}

	if !slices.Contains(ValidMetricsBridges, c.Metrics.Bridge) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsBridge, c.Metrics.Bridge)
	}

	if c.Logging.Enabled && !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	for _, name := range c.Stages {
		if !slices.Contains(StageNames(), name) {
			return fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
	}
	return nil
}

// Option configures New.
type Option func(*options)

type options struct {
	logger  Logger
	sampler procstat.Sampler
	now     func() time.Time
}

// WithLogger replaces the logger built from Config.Logging.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSampler replaces the process resource sampler.
func WithSampler(s procstat.Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithClock replaces the clock used for latency and export timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Telemetry is the owned telemetry context of a process.
//
// Contract:
// - Concurrency: safe for concurrent use once New returns.
// - Lifecycle: New starts the export driver; Shutdown stops it and releases
//   sinks, providers and the log file. Shutdown is idempotent and returns
//   the joined errors of the first call.
type Telemetry struct {
	cfg      Config
	logger   Logger
	cache    *instrument.Cache
	inst     *Instrumentation
	spans    *SpanTree
	chain    *Chain
	driver   *Driver
	bridge   *Bridge
	tracer   trace.Tracer
	metrics  *exporters.FileMetricsExporter
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
	reader   sdkmetric.Reader
	logClose io.Closer

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds the telemetry context and starts the export driver. Sink
// setup failures are fatal and returned wrapped in ErrSinkSetup.
func New(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{sampler: procstat.System(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Telemetry{cfg: cfg, cache: instrument.New()}
	t.logger, t.logClose = buildLogger(cfg.Logging, o.logger)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.ServiceInstanceID(uuid.NewString()),
		),
	)
	if err != nil {
		t.release(ctx)
		return nil, fmt.Errorf("observe: failed to create resource: %w", err)
	}

	t.metrics, err = exporters.NewFileMetricsExporter(cfg.MetricsPath)
	if err != nil {
		t.release(ctx)
		return nil, fmt.Errorf("%w: metrics: %w", ErrSinkSetup, err)
	}

	if err := t.setupTracing(ctx, res); err != nil {
		t.release(ctx)
		return nil, err
	}

	if err := t.setupBridge(ctx, res); err != nil {
		t.release(ctx)
		return nil, err
	}

	t.inst = NewInstrumentation(t.cache, InstrumentationConfig{
		ExcludedRoutes: cfg.ExcludedRoutes,
		Sampler:        o.sampler,
		Clock:          o.now,
		Logger:         t.logger,
	})
	t.spans = NewSpanTree(t.tracer)

	stages := make([]Stage, 0, len(cfg.Stages))
	for _, name := range cfg.Stages {
		st, err := t.stage(name)
		if err != nil {
			t.release(ctx)
			return nil, err
		}
		stages = append(stages, st)
	}
	t.chain = NewChain(t.logger, stages...)

	t.driver = NewDriver(t.cache, t.metrics, DriverConfig{
		Interval: cfg.ExportInterval(),
		Service:  cfg.ServiceName,
		Logger:   t.logger,
		Clock:    o.now,
	})
	t.driver.Start()

	t.logger.Info(ctx, "telemetry started",
		Field{Key: "service", Value: cfg.ServiceName},
		Field{Key: "metrics_path", Value: cfg.MetricsPath},
		Field{Key: "stages", Value: cfg.Stages},
		Field{Key: "export_interval_ms", Value: cfg.ExportIntervalMs},
	)
	return t, nil
}

func buildLogger(cfg LoggingConfig, override Logger) (Logger, io.Closer) {
	if override != nil {
		return override, nil
	}
	if !cfg.Enabled {
		return &noopLogger{}, nil
	}
	if cfg.File == "" {
		return NewLoggerWithWriter(cfg.Level, os.Stderr), nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return NewLoggerWithWriter(cfg.Level, lj), lj
}

func (t *Telemetry) setupTracing(ctx context.Context, res *resource.Resource) error {
	if !t.cfg.Tracing.Enabled {
		t.tracer = tracenoop.NewTracerProvider().Tracer("noop")
		return nil
	}

	exporter, err := exporters.NewTracingExporter(ctx, t.cfg.Tracing.Exporter, t.cfg.SpansPath)
	if err != nil {
		return fmt.Errorf("%w: spans: %w", ErrSinkSetup, err)
	}

	// The syncer exports each span as it ends, so the span log is in
	// close order and spans never wait in a batch queue.
	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(exporter),
	)
	t.tracer = t.tp.Tracer(t.cfg.ServiceName)
	return nil
}

func (t *Telemetry) setupBridge(ctx context.Context, res *resource.Resource) error {
	reader, err := exporters.NewMetricsReader(ctx, t.cfg.Metrics.Bridge)
	if err != nil {
		return fmt.Errorf("observe: failed to create metrics reader: %w", err)
	}
	if reader == nil {
		return nil
	}

	t.reader = reader
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	t.bridge, err = NewBridge(t.mp.Meter(t.cfg.ServiceName), t.cache, Instruments())
	if err != nil {
		return fmt.Errorf("observe: failed to bridge metrics: %w", err)
	}
	return nil
}

func (t *Telemetry) stage(name string) (Stage, error) {
	if name == StageSpanTree {
		return t.spans.Stage(), nil
	}
	return t.inst.Stage(name)
}

// Handler wraps next with the instrumentation chain.
func (t *Telemetry) Handler(next http.Handler) http.Handler {
	return t.chain.Wrap(next)
}

// Chain returns the configured middleware chain.
func (t *Telemetry) Chain() *Chain {
	return t.chain
}

// Cache returns the bound-instrument cache.
func (t *Telemetry) Cache() *instrument.Cache {
	return t.cache
}

// Instrumentation returns the stage constructors bound to the cache.
func (t *Telemetry) Instrumentation() *Instrumentation {
	return t.inst
}

// Driver returns the periodic export driver.
func (t *Telemetry) Driver() *Driver {
	return t.driver
}

// Tracer returns the tracer used by the span tree stage.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Meter returns the bridge meter, or nil when no bridge is configured.
func (t *Telemetry) Meter() metric.Meter {
	if t.mp == nil {
		return nil
	}
	return t.mp.Meter(t.cfg.ServiceName)
}

// Logger returns the process logger.
func (t *Telemetry) Logger() Logger {
	return t.logger
}

// Config returns the configuration Telemetry was built from.
func (t *Telemetry) Config() Config {
	return t.cfg
}

// Shutdown stops the export driver (flushing one final snapshot), then
// shuts down sinks and providers. It does not retry failed writes.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		t.shutdownErr = t.release(ctx)
	})
	return t.shutdownErr
}

func (t *Telemetry) release(ctx context.Context) error {
	var errs []error

	if t.driver != nil {
		if err := t.driver.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("driver stop: %w", err))
		}
	}

	if t.metrics != nil {
		if err := t.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics sink shutdown: %w", err))
		}
	}

	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	if t.bridge != nil {
		if err := t.bridge.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("bridge unregister: %w", err))
		}
	}

	if t.mp != nil {
		if err := t.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	} else if t.reader != nil {
		if err := t.reader.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reader shutdown: %w", err))
		}
	}

	if len(errs) == 0 {
		t.logger.Info(ctx, "telemetry stopped")
	}

	if t.logClose != nil {
		if err := t.logClose.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log close: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
