package exporters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// TestExporter_InvalidName verifies unknown exporter name returns error.
func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid", "")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("expected ErrUnknownExporter, got: %v", err)
	}
}

// TestExporter_FileTracingIsDefault verifies the empty name selects the file exporter.
func TestExporter_FileTracingIsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "tracing.log")
	exp, err := NewTracingExporter(context.Background(), "", path)
	if err != nil {
		t.Fatalf("failed to create file tracing exporter: %v", err)
	}
	fe, ok := exp.(*FileSpanExporter)
	if !ok {
		t.Fatalf("expected *FileSpanExporter, got %T", exp)
	}
	if fe.Path() != path {
		t.Errorf("Path() = %q, want %q", fe.Path(), path)
	}
}

// TestExporter_FileTracingNeedsPath verifies the file exporter rejects an empty path.
func TestExporter_FileTracingNeedsPath(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "file", "")
	if !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got: %v", err)
	}
}

// TestExporter_StdoutTracing verifies stdout tracing exporter.
func TestExporter_StdoutTracing(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout", "")
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestExporter_StdoutMetrics verifies stdout metrics reader.
func TestExporter_StdoutMetrics(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestExporter_OtlpMissingEndpoint verifies OTLP without endpoint env fails.
func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp", ""); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("tracing: expected ErrEndpointNotConfigured, got: %v", err)
	}
	if _, err := NewMetricsReader(context.Background(), "otlp"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("metrics: expected ErrEndpointNotConfigured, got: %v", err)
	}
}

// TestExporter_OtlpWithEndpoint verifies OTLP with endpoint env succeeds.
func TestExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp", "")
	if err != nil {
		t.Fatalf("failed to create OTLP exporter with endpoint: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
	_ = exp.Shutdown(context.Background())
}

// TestExporter_PrometheusReturnsReader verifies Prometheus metrics reader.
func TestExporter_PrometheusReturnsReader(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestExporter_NoneTracing verifies 'none' returns a discarding exporter.
func TestExporter_NoneTracing(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "none", "")
	if err != nil {
		t.Fatalf("failed to create none exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestExporter_NoneMetricsReturnsNil verifies 'none' disables the bridge.
func TestExporter_NoneMetricsReturnsNil(t *testing.T) {
	for _, name := range []string{"none", ""} {
		reader, err := NewMetricsReader(context.Background(), name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if reader != nil {
			t.Fatalf("%q: expected nil reader, got %T", name, reader)
		}
	}
}

// TestExporter_MetricsInvalidName verifies unknown metrics exporter returns error.
func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("expected ErrUnknownExporter, got: %v", err)
	}
}

func TestResult(t *testing.T) {
	if r := Succeeded(); !r.OK() || r.Err != nil || r.Code.String() != "success" {
		t.Errorf("Succeeded() = %+v", r)
	}
	cause := errors.New("disk full")
	r := Failure(cause)
	if r.OK() || !errors.Is(r.Err, cause) || r.Code.String() != "failed" {
		t.Errorf("Failure() = %+v", r)
	}
	if ResultCode(7).String() != "unknown" {
		t.Error("unknown code should stringify as unknown")
	}
}
