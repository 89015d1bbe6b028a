package observability

import (
	"github.com/aquivis/aquivis/internal/observability/logger"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires the zap logger, the OTel tracer provider and the
// prometheus-backed metrics shared by the HTTP server and the scheduler.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// tracer provider installs itself as the global on construction
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
