package observability

import (
	"strings"

	"github.com/aquivis/aquivis/internal/config"
	"github.com/aquivis/aquivis/internal/observability/logger"
	"github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/aquivis/aquivis/internal/observability/tracing"
)

const defaultServiceName = "aquivis"

// Config is the resolved telemetry identity plus export settings.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	config.TelemetryConfig
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ServiceName:     name,
		Environment:     strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:         strings.TrimSpace(cfg.AppVersion),
		TelemetryConfig: cfg.Telemetry,
	}
}

// Debug is true for debug log level and for non-deployed environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.ExportEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		SamplingRatio:    c.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.ExportEnabled,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
