package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/arvi1709/AI-library/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewLoggerAddsRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "production")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(7))
	log.InfoContext(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.EqualValues(t, 7, line["user_id"])
	assert.NotContains(t, line, "trace_id")
}

func TestRequestPipelineLogsAndTraces(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prevTracer := observability.Tracer
	observability.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")
	t.Cleanup(func() { observability.Tracer = prevTracer })

	var buf bytes.Buffer
	prevLogger := Logger
	Logger = NewLogger(&buf, "production")
	t.Cleanup(func() { Logger = prevLogger })

	var seenRequestID any
	app := fiber.New()
	app.Use(requestid.New(), TracingMiddleware(), ContextMiddleware(), StructuredLogger())
	app.Get("/api/stories/:id", func(c *fiber.Ctx) error {
		seenRequestID = c.UserContext().Value(RequestIDKey)
		return c.SendStatus(fiber.StatusTeapot)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/stories/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(TraceHeader))
	assert.NotNil(t, seenRequestID)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/stories/:id", spans[0].Name())
	assert.Equal(t, resp.Header.Get(TraceHeader), spans[0].SpanContext().TraceID().String())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request processed", line["msg"])
	assert.Equal(t, "/api/stories/:id", line["route"])
	assert.EqualValues(t, fiber.StatusTeapot, line["status"])
	assert.Equal(t, resp.Header.Get(TraceHeader), line["trace_id"])
	assert.Equal(t, seenRequestID, line["request_id"])
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production").Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, "development").Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
