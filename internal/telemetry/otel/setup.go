// Package otel builds the OpenTelemetry trace, metric, and log providers for the dashboard,
// exporting over OTLP/gRPC when a collector is configured.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const (
	defaultServiceName    = "staff-dashboard"
	defaultMetricInterval = 10 * time.Second
)

// Options selects the collector and how the dashboard identifies itself to it.
type Options struct {
	// Endpoint is host:port or a URL; a path is ignored. Empty keeps telemetry in-process.
	Endpoint    string
	ServiceName string
	// Environment is reported as deployment.environment.name when set.
	Environment string
	// Insecure forces plaintext even for https endpoints.
	Insecure       bool
	MetricInterval time.Duration
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// collector is a parsed OTLP/gRPC endpoint.
type collector struct {
	host      string
	plaintext bool
}

func parseCollector(endpoint string, forcePlaintext bool) (collector, error) {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return collector{}, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return collector{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return collector{host: u.Host, plaintext: forcePlaintext || u.Scheme != "https"}, nil
}

func newResource(ctx context.Context, opts Options) (*resource.Resource, error) {
	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(name)}
	if env := strings.TrimSpace(opts.Environment); env != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", env))
	}
	return resource.New(ctx, resource.WithTelemetrySDK(), resource.WithAttributes(attrs...))
}

// shutdownStack runs shutdown functions last-in first-out and joins their errors.
type shutdownStack []func(context.Context) error

func (s shutdownStack) run(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewProviders builds the providers for opts. Without an endpoint the providers only carry the
// resource and Shutdown still flushes them.
func NewProviders(ctx context.Context, opts Options) (*Providers, error) {
	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		p := &Providers{
			TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithResource(res)),
			MeterProvider:  metric.NewMeterProvider(metric.WithResource(res)),
			LoggerProvider: sdklog.NewLoggerProvider(sdklog.WithResource(res)),
		}
		p.Shutdown = shutdownStack{p.TracerProvider.Shutdown, p.MeterProvider.Shutdown, p.LoggerProvider.Shutdown}.run
		return p, nil
	}

	col, err := parseCollector(endpoint, opts.Insecure)
	if err != nil {
		return nil, err
	}
	interval := opts.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}

	var stack shutdownStack
	fail := func(err error) (*Providers, error) {
		_ = stack.run(ctx)
		return nil, err
	}

	tp, err := tracerProvider(ctx, col, res)
	if err != nil {
		return fail(fmt.Errorf("otlp traces: %w", err))
	}
	stack = append(stack, tp.Shutdown)

	mp, err := meterProvider(ctx, col, res, interval)
	if err != nil {
		return fail(fmt.Errorf("otlp metrics: %w", err))
	}
	stack = append(stack, mp.Shutdown)

	lp, err := loggerProvider(ctx, col, res)
	if err != nil {
		return fail(fmt.Errorf("otlp logs: %w", err))
	}
	stack = append(stack, lp.Shutdown)

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown:       stack.run,
	}, nil
}

func tracerProvider(ctx context.Context, col collector, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(col.host)}
	if col.plaintext {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func meterProvider(ctx context.Context, col collector, res *resource.Resource, interval time.Duration) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(col.host)}
	if col.plaintext {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(interval))),
	), nil
}

func loggerProvider(ctx context.Context, col collector, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(col.host)}
	if col.plaintext {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

// SetGlobal installs the tracer and meter providers globally for otelgrpc. The logger provider
// is not global; session events reach it through NewEventEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
