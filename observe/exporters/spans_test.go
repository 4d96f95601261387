package exporters

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestFileSpanExporter_ParentResolvesToRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "tracing.log")
	exp, err := NewFileSpanExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName("tracing-service"))),
	)
	tracer := tp.Tracer("test")

	ctx, root := tracer.Start(context.Background(), "incoming-request")
	root.SetAttributes(attribute.String("http.method", "GET"))
	_, child := tracer.Start(ctx, "processing")
	child.End()
	root.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("provider shutdown: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d span lines, want 2", len(lines))
	}

	var spans [2]SpanRecord
	for i, line := range lines {
		if err := json.Unmarshal([]byte(line), &spans[i]); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
	}

	// Close order: the child ends first.
	childRec, rootRec := spans[0], spans[1]
	if childRec.Name != "processing" || rootRec.Name != "incoming-request" {
		t.Fatalf("unexpected order: %q then %q", childRec.Name, rootRec.Name)
	}
	if childRec.ParentSpanID != rootRec.SpanID {
		t.Errorf("child parent = %q, want root id %q", childRec.ParentSpanID, rootRec.SpanID)
	}
	if rootRec.ParentSpanID != "" {
		t.Errorf("root parent = %q, want empty", rootRec.ParentSpanID)
	}
	if childRec.TraceID != rootRec.TraceID {
		t.Error("child and root must share a trace id")
	}
	for _, s := range spans {
		if s.EndTime.Before(s.StartTime) {
			t.Errorf("span %q ends before it starts", s.Name)
		}
		if s.Service != "tracing-service" {
			t.Errorf("span %q service = %q", s.Name, s.Service)
		}
	}
	if rootRec.Attributes["http.method"] != "GET" {
		t.Errorf("root attributes = %v", rootRec.Attributes)
	}
}

func TestFileSpanExporter_EmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracing.log")
	exp, err := NewFileSpanExporter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.ExportSpans(context.Background(), nil); err != nil {
		t.Fatalf("ExportSpans(nil): %v", err)
	}
	if res := exp.Export(context.Background(), nil); !res.OK() {
		t.Fatalf("Export(nil): %v", res.Err)
	}
	if size := fileSize(t, path); size != 0 {
		t.Errorf("empty batches wrote %d bytes", size)
	}
}

func TestFileSpanExporter_ExportRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracing.log")
	exp, err := NewFileSpanExporter(path)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	records := []SpanRecord{
		{SpanID: "a", Name: "first", StartTime: start, EndTime: start},
		{SpanID: "b", Name: "second", StartTime: start, EndTime: start.Add(time.Millisecond)},
	}
	if res := exp.Export(context.Background(), records); !res.OK() {
		t.Fatalf("Export failed: %v", res.Err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var second SpanRecord
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second.Name != "second" {
		t.Errorf("line order broken: second line is %q", second.Name)
	}
}
