package otel

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "splitr"
	serviceVersion = "1.0.0"
)

// Exporter pushes allocation and conversion counters to an OTEL Collector.
type Exporter struct {
	provider         *sdkmetric.MeterProvider
	allocationsTotal metric.Int64Counter
	conversionsTotal metric.Int64Counter
	conversionValue  metric.Float64Counter
}

// NewExporter creates a new OTLP/gRPC metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, errors.New("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating OTLP exporter")
	}

	return NewExporterWithReader(ctx, sdkmetric.NewPeriodicReader(exp))
}

// NewExporterWithReader builds the meter provider around an arbitrary reader.
func NewExporterWithReader(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating resource")
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	allocationsTotal, err := meter.Int64Counter(
		"splitr_allocations_total",
		metric.WithDescription("Allocation decisions by experiment, variant and reason"),
		metric.WithUnit("{allocation}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating allocations counter")
	}

	conversionsTotal, err := meter.Int64Counter(
		"splitr_conversions_total",
		metric.WithDescription("Recorded conversions by experiment and variant"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating conversions counter")
	}

	conversionValue, err := meter.Float64Counter(
		"splitr_conversion_value_total",
		metric.WithDescription("Sum of conversion values"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating conversion value counter")
	}

	return &Exporter{
		provider:         provider,
		allocationsTotal: allocationsTotal,
		conversionsTotal: conversionsTotal,
		conversionValue:  conversionValue,
	}, nil
}

func (e *Exporter) RecordAllocation(ctx context.Context, experiment, variantID, reason string) {
	e.allocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment", experiment),
		attribute.String("variant", variantID),
		attribute.String("reason", reason),
	))
}

func (e *Exporter) RecordConversion(ctx context.Context, experiment, variantID string, value *float64) {
	opt := metric.WithAttributes(
		attribute.String("experiment", experiment),
		attribute.String("variant", variantID),
	)
	e.conversionsTotal.Add(ctx, 1, opt)
	if value != nil && *value >= 0 {
		e.conversionValue.Add(ctx, *value, opt)
	}
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
