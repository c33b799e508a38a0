package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/hireledger/internal/observability/logger"
	"github.com/smallbiznis/hireledger/internal/observability/metrics"
	"github.com/smallbiznis/hireledger/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the OTLP tracer and meter providers, the
// ledger counters and the gin HTTP histograms.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			debug := cfg.Debug()
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.LogLevel,
				Format:              cfg.LogFormat,
				Debug:               debug,
				IncludeCaller:       true,
				IncludeStackOnError: debug,
			}
		},
		logger.New,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.Export,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.Endpoint,
				ExporterProtocol: cfg.Protocol,
				SamplingRatio:    cfg.SamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.Export,
				ExporterEndpoint: cfg.Endpoint,
				ExporterProtocol: cfg.Protocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		func() (*metrics.HTTPMetrics, error) {
			return metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
		},
	),
	// Forces the tracer provider to be built so otel.SetTracerProvider runs.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
