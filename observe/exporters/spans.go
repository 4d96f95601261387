package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SpanStatus is the serialized span status.
type SpanStatus struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// SpanRecord is one span as written to the span log.
type SpanRecord struct {
	TraceID      string         `json:"traceId"`
	SpanID       string         `json:"spanId"`
	ParentSpanID string         `json:"parentSpanId,omitempty"`
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      time.Time      `json:"endTime"`
	DurationMs   float64        `json:"durationMs"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Status       SpanStatus     `json:"status"`
	Service      string         `json:"service,omitempty"`
}

// SpanRecordFrom converts a finished SDK span.
func SpanRecordFrom(s sdktrace.ReadOnlySpan) SpanRecord {
	rec := SpanRecord{
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Name:       s.Name(),
		Kind:       s.SpanKind().String(),
		StartTime:  s.StartTime(),
		EndTime:    s.EndTime(),
		DurationMs: float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
		Status: SpanStatus{
			Code:        s.Status().Code.String(),
			Description: s.Status().Description,
		},
	}
	if p := s.Parent(); p.IsValid() {
		rec.ParentSpanID = p.SpanID().String()
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		rec.Attributes = make(map[string]any, len(attrs))
		for _, kv := range attrs {
			rec.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
	}
	if res := s.Resource(); res != nil {
		if v, ok := res.Set().Value(semconv.ServiceNameKey); ok && v.Type() == attribute.STRING {
			rec.Service = v.AsString()
		}
	}
	return rec
}

// FileSpanExporter writes spans to a FileSink, one JSON object per line.
// It implements sdktrace.SpanExporter; registered with
// sdktrace.WithSyncer it receives each span as it ends, so the file is in
// span-close order.
type FileSpanExporter struct {
	sink *FileSink
}

// NewFileSpanExporter creates the exporter and prepares its target file.
func NewFileSpanExporter(path string) (*FileSpanExporter, error) {
	sink, err := NewFileSink(path)
	if err != nil {
		return nil, err
	}
	return &FileSpanExporter{sink: sink}, nil
}

// Path returns the target file path.
func (e *FileSpanExporter) Path() string {
	return e.sink.Path()
}

// Export appends span records in order. An empty batch writes nothing.
func (e *FileSpanExporter) Export(ctx context.Context, records []SpanRecord) Result {
	if len(records) == 0 {
		return Succeeded()
	}
	lines := make([][]byte, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return Failure(fmt.Errorf("exporters: encode span %q: %w", r.Name, err))
		}
		lines = append(lines, data)
	}
	return e.sink.Append(ctx, lines)
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *FileSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}
	records := make([]SpanRecord, 0, len(spans))
	for _, s := range spans {
		records = append(records, SpanRecordFrom(s))
	}
	return e.Export(ctx, records).Err
}

// Shutdown implements sdktrace.SpanExporter. It is idempotent.
func (e *FileSpanExporter) Shutdown(ctx context.Context) error {
	return e.sink.Shutdown(ctx)
}

var _ sdktrace.SpanExporter = (*FileSpanExporter)(nil)
