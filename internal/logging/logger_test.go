package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLoggerWithOutput("debug", &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	buf.Reset()
	logger = NewLoggerWithOutput("loud", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Unknown log level")
}

func TestWithTracingAddsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.InfoWithTracing(ctx, "hello", logrus.Fields{"submission_id": "abc"})

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "abc", line["submission_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestErrorWithTracingWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.ErrorWithTracing(context.Background(), "boom", errors.New("connection refused"), nil)

	line := decodeLine(t, &buf)
	assert.Equal(t, "boom", line["message"])
	assert.Equal(t, "connection refused", line["error"])
	assert.NotContains(t, line, "trace_id")
}
