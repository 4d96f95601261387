package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span names and attribute keys of the span tree.
const (
	RootSpanName  = "incoming-request"
	ChildSpanName = "processing"

	AttrHTTPMethod = attribute.Key("http.method")
	AttrHTTPURL    = attribute.Key("http.url")
)

// SpanTree opens a root span and one child span per request and closes
// both before the request continues, so the pair brackets only the
// instrumentation overhead.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Build never fails; a nil tracer behaves as a noop tracer.
type SpanTree struct {
	tracer trace.Tracer
}

// NewSpanTree creates a span tree builder.
func NewSpanTree(t trace.Tracer) *SpanTree {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &SpanTree{tracer: t}
}

// Build opens and closes the root and child spans for one request and
// returns their span contexts. The child is ended before the root.
func (s *SpanTree) Build(ctx context.Context, method, url string) (root, child trace.SpanContext) {
	ctx, rootSpan := s.tracer.Start(ctx, RootSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			AttrHTTPMethod.String(method),
			AttrHTTPURL.String(url),
		),
	)
	_, childSpan := s.tracer.Start(ctx, ChildSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	childSpan.SetStatus(codes.Ok, "")
	childSpan.End()
	rootSpan.SetStatus(codes.Ok, "")
	rootSpan.End()

	return rootSpan.SpanContext(), childSpan.SpanContext()
}

// Stage returns the span-tree chain stage.
func (s *SpanTree) Stage() Stage {
	return Stage{Name: StageSpanTree, Run: func(ex *Exchange, proceed func()) {
		s.Build(ex.Context(), ex.Method, ex.URL)
		proceed()
	}}
}
