package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability records per-job counts and durations through an OpenTelemetry
// meter exported in Prometheus format, and wraps each tool call in a span.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
}

// New registers the exporter with the default Prometheus registerer and
// installs the provider globally.
func New(serviceName string, opts ...sdktrace.TracerProviderOption) (*Observability, error) {
	o, err := NewWithRegisterer(serviceName, promclient.DefaultRegisterer, opts...)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	otel.SetTracerProvider(o.tracerProvider)
	return o, nil
}

// NewWithRegisterer exports metrics to reg. Tracer provider options select
// span processors; without any, spans are kept for trace id correlation only.
func NewWithRegisterer(serviceName string, reg promclient.Registerer, opts ...sdktrace.TracerProviderOption) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	jobCounter, err := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create job counter: %w", err)
	}

	jobDuration, err := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create job duration histogram: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(opts...)

	return &Observability{
		meterProvider:  provider,
		tracerProvider: tracerProvider,
		meter:          meter,
		tracer:         tracerProvider.Tracer(serviceName),
		jobCounter:     jobCounter,
		jobDuration:    jobDuration,
	}, nil
}

// Instrument runs fn and records its outcome for tool. status maps the
// returned error to a status label; nil maps to "ok".
func (o *Observability) Instrument(ctx context.Context, tool string, fn func(ctx context.Context) (string, error)) error {
	var span trace.Span
	if o != nil && o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "tool."+tool,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("tool", tool)),
		)
		defer span.End()
	}

	start := time.Now()
	status, err := fn(ctx)
	if status == "" {
		status = "ok"
		if err != nil {
			status = "error"
		}
	}

	if span != nil {
		span.SetAttributes(attribute.String("status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	o.RecordJobProcessed(ctx, tool, status)
	o.RecordJobDuration(ctx, tool, time.Since(start), status)
	return err
}

func (o *Observability) RecordJobProcessed(ctx context.Context, tool, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, tool string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

// TraceID returns the id of the span active in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
