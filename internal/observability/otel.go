// Package observability wires OpenTelemetry trace export into Genkit.
//
// Traces are sent over OTLP HTTP to a local collector or agent, which
// handles authentication and forwarding to the backend. Genkit already
// instruments flows, model calls, and tool calls; registering a span
// processor on its TracerProvider is all that is needed to export them.
//
// Configuration (~/.resolvo/config.yaml):
//
//	otel:
//	  agent_host: "localhost:4318"
//	  service_name: "resolvo"
//	  environment: "production"
//
// An empty agent_host disables tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// AgentHost is the OTLP HTTP endpoint (host:port, no scheme).
	AgentHost string
	// ServiceName is the service name shown in the APM backend.
	ServiceName string
	// Environment is the deployment environment (development, staging, production).
	Environment string
}

// DefaultAgentHost is the conventional local OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Setup registers an OTLP exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans. Exporter
// creation failure is non-fatal: tracing is disabled and a no-op
// shutdown is returned.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit's TracerProvider reads resource attributes from the environment.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
