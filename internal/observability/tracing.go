// Package observability wires OpenTelemetry tracing. Spans are exported
// over OTLP HTTP to whatever collector the deployment points at; with no
// endpoint configured the whole package is a no-op.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector address (host:port). Empty
	// disables tracing.
	Endpoint string
	// ServiceName tags every span.
	ServiceName string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
}

// noopShutdown is returned when tracing is disabled or fails to start, so
// callers can always defer the shutdown function.
func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider exporting to cfg.Endpoint and
// returns a shutdown function that flushes pending spans. An exporter
// failure degrades to no tracing instead of refusing to start; the chat
// service is more important than its telemetry.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled, no collector endpoint configured")
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled", "error", err)
		return noopShutdown, nil
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return provider.Shutdown, nil
}
