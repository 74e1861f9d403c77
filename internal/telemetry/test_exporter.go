package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
)

// TestSpanRecorder is a span exporter that keeps everything in memory.
type TestSpanRecorder struct {
	mu    sync.RWMutex
	spans []trace.ReadOnlySpan
}

func NewTestSpanRecorder() *TestSpanRecorder {
	return &TestSpanRecorder{
		spans: make([]trace.ReadOnlySpan, 0),
	}
}

func (t *TestSpanRecorder) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.spans = append(t.spans, spans...)
	return nil
}

func (t *TestSpanRecorder) Shutdown(ctx context.Context) error {
	return nil
}

func (t *TestSpanRecorder) GetSpans() []trace.ReadOnlySpan {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]trace.ReadOnlySpan, len(t.spans))
	copy(result, t.spans)
	return result
}

func (t *TestSpanRecorder) GetSpansByName(name string) []trace.ReadOnlySpan {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []trace.ReadOnlySpan
	for _, span := range t.spans {
		if span.Name() == name {
			result = append(result, span)
		}
	}
	return result
}

// GetSpansByOperation matches on the "operation" attribute set by the
// validation, notifier and transport spans.
func (t *TestSpanRecorder) GetSpansByOperation(operation string) []trace.ReadOnlySpan {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []trace.ReadOnlySpan
	for _, span := range t.spans {
		if v, ok := SpanAttribute(span, "operation"); ok && v.AsString() == operation {
			result = append(result, span)
		}
	}
	return result
}

func (t *TestSpanRecorder) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.spans = make([]trace.ReadOnlySpan, 0)
}

func (t *TestSpanRecorder) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.spans)
}

// SpanAttribute looks up a single attribute on a finished span.
func SpanAttribute(span trace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// InitTestTracing installs a synchronous provider backed by recorder as the
// global provider, so spans are visible as soon as they end.
func InitTestTracing(recorder *TestSpanRecorder) *trace.TracerProvider {
	tp := trace.NewTracerProvider(
		trace.WithSyncer(recorder),
	)
	otel.SetTracerProvider(tp)
	return tp
}
