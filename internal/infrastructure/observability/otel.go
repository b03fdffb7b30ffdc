package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/stayaudit"

// Metrics holds the recommendation pipeline metrics
type Metrics struct {
	AnalysisCount    metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	FallbackCount    metric.Int64Counter
	DegradedContext  metric.Int64Counter
	BatchStayCount   metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing and metrics exporters
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes the pipeline metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	analysisCount, err := meter.Int64Counter(
		"stayaudit.analysis.count",
		metric.WithDescription("Number of discharge analyses"),
	)
	if err != nil {
		return nil, err
	}

	analysisDuration, err := meter.Float64Histogram(
		"stayaudit.analysis.duration",
		metric.WithDescription("Discharge analysis duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fallbackCount, err := meter.Int64Counter(
		"stayaudit.analysis.fallback.count",
		metric.WithDescription("Number of analyses that ended in a fallback record"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"stayaudit.context.degraded.count",
		metric.WithDescription("Number of retrievals answered with the safe default context"),
	)
	if err != nil {
		return nil, err
	}

	batchStays, err := meter.Int64Counter(
		"stayaudit.batch.stay.count",
		metric.WithDescription("Number of stays processed by batch runs"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AnalysisCount:    analysisCount,
		AnalysisDuration: analysisDuration,
		FallbackCount:    fallbackCount,
		DegradedContext:  degraded,
		BatchStayCount:   batchStays,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// RecordAnalysis records one orchestrator run. Safe to call with nil metrics.
func RecordAnalysis(ctx context.Context, metrics *Metrics, pathology, priority string, fallback bool, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("stay.pathology", pathology),
		attribute.String("recommendation.priority", priority),
	}
	metrics.AnalysisCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.AnalysisDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if fallback {
		metrics.FallbackCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDegradedContext records a retrieval that returned the safe default
func RecordDegradedContext(ctx context.Context, metrics *Metrics, pathology string) {
	if metrics == nil {
		return
	}
	metrics.DegradedContext.Add(ctx, 1, metric.WithAttributes(attribute.String("stay.pathology", pathology)))
}

// RecordBatchStays records the size of a finished batch run
func RecordBatchStays(ctx context.Context, metrics *Metrics, count int) {
	if metrics == nil || count <= 0 {
		return
	}
	metrics.BatchStayCount.Add(ctx, int64(count))
}
