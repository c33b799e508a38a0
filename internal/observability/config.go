package observability

import (
	"strings"

	"github.com/smallbiznis/hireledger/internal/config"
)

// Config is the slice of application config the logger, tracer and meter
// providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Export        bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "hireledger"
	}

	protocol := cfg.Telemetry.OTLPProtocol
	if protocol != "http" && protocol != "http/protobuf" {
		protocol = "grpc"
	}

	ratio := cfg.Telemetry.SamplingRatio
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	return Config{
		ServiceName:   name,
		Environment:   strings.TrimSpace(cfg.Environment),
		Version:       strings.TrimSpace(cfg.AppVersion),
		LogLevel:      cfg.Telemetry.LogLevel,
		LogFormat:     cfg.Telemetry.LogFormat,
		Export:        cfg.Telemetry.OTLPEnabled && strings.TrimSpace(cfg.OTLPEndpoint) != "",
		Endpoint:      strings.TrimSpace(cfg.OTLPEndpoint),
		Protocol:      protocol,
		SamplingRatio: ratio,
	}
}

// Debug reports whether verbose logging and gin debug mode apply.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
