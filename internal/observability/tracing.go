package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Tracer starts every application span. InitTracing replaces it.
var Tracer trace.Tracer = otel.Tracer("storyhouse-api")

// TracingConfig holds configuration for initializing the tracer.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // "stdout" or "otlp"
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs the global tracer provider and returns its shutdown
// func. With tracing disabled spans are no-ops and shutdown does nothing.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return nil, errors.New("tracing exporter otlp needs OTLP_ENDPOINT")
		}
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
}

// newSampler keeps the caller's decision for propagated traces and samples
// ratio of new roots. Ratios outside (0,1) mean all or nothing.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Span wraps an OpenTelemetry span for the service layer.
type Span struct {
	span trace.Span
}

// StartSpan starts an internal span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return &Span{span: span}, ctx
}

// StartClientSpan starts a span for a call to an external service such as the model.
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return &Span{span: span}, ctx
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s != nil && s.span != nil {
		s.span.SetAttributes(attrs...)
	}
}

// SetError records err and marks the span failed.
func (s *Span) SetError(err error) {
	if s != nil && s.span != nil && err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
}

func (s *Span) End() {
	if s != nil && s.span != nil {
		s.span.End()
	}
}

const gormStatementKey = "storyhouse:statement"

type statementTrace struct {
	span  trace.Span
	op    string
	start time.Time
}

type gormTracing struct{}

// GormTracing is a gorm plugin that opens a client span around every
// statement and records its latency. Record-not-found is not a failure.
func GormTracing() gorm.Plugin {
	return gormTracing{}
}

func (gormTracing) Name() string { return "storyhouse:tracing" }

func (gormTracing) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("tracing:before_create", startStatement("insert")),
		cb.Create().After("gorm:create").Register("tracing:after_create", endStatement),
		cb.Query().Before("gorm:query").Register("tracing:before_query", startStatement("select")),
		cb.Query().After("gorm:query").Register("tracing:after_query", endStatement),
		cb.Update().Before("gorm:update").Register("tracing:before_update", startStatement("update")),
		cb.Update().After("gorm:update").Register("tracing:after_update", endStatement),
		cb.Delete().Before("gorm:delete").Register("tracing:before_delete", startStatement("delete")),
		cb.Delete().After("gorm:delete").Register("tracing:after_delete", endStatement),
		cb.Row().Before("gorm:row").Register("tracing:before_row", startStatement("row")),
		cb.Row().After("gorm:row").Register("tracing:after_row", endStatement),
		cb.Raw().Before("gorm:raw").Register("tracing:before_raw", startStatement("exec")),
		cb.Raw().After("gorm:raw").Register("tracing:after_raw", endStatement),
	}
	return errors.Join(errs...)
}

func startStatement(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		_, span := Tracer.Start(ctx, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", tx.Dialector.Name()),
				attribute.String("db.operation", op),
			),
		)
		tx.InstanceSet(gormStatementKey, &statementTrace{span: span, op: op, start: time.Now()})
	}
}

func endStatement(tx *gorm.DB) {
	v, ok := tx.InstanceGet(gormStatementKey)
	if !ok {
		return
	}
	st, ok := v.(*statementTrace)
	if !ok {
		return
	}
	defer st.span.End()

	table := tx.Statement.Table
	DatabaseQueryLatency.WithLabelValues(st.op, table).Observe(time.Since(st.start).Seconds())
	if table != "" {
		st.span.SetAttributes(attribute.String("db.table", table))
	}
	st.span.SetAttributes(attribute.Int64("db.rows_affected", tx.RowsAffected))
	if err := tx.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		st.span.RecordError(err)
		st.span.SetStatus(codes.Error, err.Error())
	}
}
