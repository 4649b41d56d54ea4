package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "dataflow"

// Providers bundles what Init hands back to the host: the tracer and
// meter the scheduler instruments itself with, the structured logger,
// an optional Prometheus gatherer, and a Shutdown that flushes any
// exporters before process exit.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// PrometheusGatherer is non-nil when Config.PrometheusMetrics is
	// set; a host mounts it behind promhttp to expose a scrape
	// endpoint. Transport is the host's job, not this package's.
	PrometheusGatherer prometheus.Gatherer

	// Shutdown flushes pending telemetry. Safe to call more than once.
	Shutdown func(ctx context.Context) error
}

// Init assembles the telemetry stack cfg describes. With no OTLP
// endpoint and Prometheus off it costs nothing at runtime: no-op
// tracer, no-op meter, logger to stderr.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := circuitResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	var flushers []func(context.Context) error

	tp, err := spanProviderFor(ctx, cfg, res)
	if err != nil {
		return Providers{}, err
	}

	if sdk, ok := tp.(*sdktrace.TracerProvider); ok {
		flushers = append(flushers, sdk.Shutdown)
	}

	mp, gatherer, err := meterProviderFor(ctx, cfg, res)
	if err != nil {
		return Providers{}, errors.Join(err, shutdownAll(ctx, flushers))
	}

	if sdk, ok := mp.(*sdkmetric.MeterProvider); ok {
		flushers = append(flushers, sdk.Shutdown)
	}

	shutdown := func(shutdownCtx context.Context) error {
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}

		deadlineCtx, cancel := context.WithTimeout(shutdownCtx, timeout)
		defer cancel()

		return shutdownAll(deadlineCtx, flushers)
	}

	return Providers{
		Tracer:             tp.Tracer(instrumentationName),
		Meter:              mp.Meter(instrumentationName),
		Logger:             NewLogger(cfg, os.Stderr),
		PrometheusGatherer: gatherer,
		Shutdown:           shutdown,
	}, nil
}

func shutdownAll(ctx context.Context, flushers []func(context.Context) error) error {
	var errs []error
	for _, f := range flushers {
		errs = append(errs, f(ctx))
	}

	return errors.Join(errs...)
}

// circuitResource describes this process to the telemetry backend:
// service identity plus the app mode, mirroring the identity attrs the
// logger stamps on every record.
func circuitResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("app.mode", string(cfg.Mode)))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	return res, nil
}

// spanProviderFor returns a real tracer provider only when there is
// somewhere to send spans. The scheduler emits one span per Step, so no
// sampling knob is exposed: at that volume, export everything.
func spanProviderFor(ctx context.Context, cfg Config, res *resource.Resource) (trace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// meterProviderFor assembles zero, one, or two metric readers: an OTLP
// periodic reader when an endpoint is configured, and a Prometheus
// registry when local scraping is on. The two compose; with neither,
// instruments record into a no-op provider.
func meterProviderFor(ctx context.Context, cfg Config, res *resource.Resource) (metric.MeterProvider, prometheus.Gatherer, error) {
	var (
		readers  []sdkmetric.Reader
		gatherer prometheus.Gatherer
	)

	if cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		readers = append(readers, sdkmetric.NewPeriodicReader(exporter))
	}

	if cfg.PrometheusMetrics {
		registry := prometheus.NewRegistry()

		reader, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus reader: %w", err)
		}

		readers = append(readers, reader)
		gatherer = registry
	}

	if len(readers) == 0 {
		return noopmetric.NewMeterProvider(), nil, nil
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	return sdkmetric.NewMeterProvider(mpOpts...), gatherer, nil
}
