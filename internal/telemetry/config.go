package telemetry

import "os"

// EndpointEnv names the environment variable that enables OTLP export.
const EndpointEnv = "PLANGUARD_OTLP_ENDPOINT"

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, ci, production)
	Environment string

	// Enabled determines whether tracing is enabled
	// When false, a noop tracer is used
	Enabled bool

	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	// If empty, spans are recorded but not exported.
	Endpoint string

	// Insecure disables TLS for the exporter.
	Insecure bool

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns the configuration for a local CLI run.
// Tracing is disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "planguard",
		ServiceVersion: "dev",
		Environment:    "development",
		Enabled:        false,
		Endpoint:       "",
		SampleRate:     1.0,
	}
}

// ExportConfig returns a configuration that exports every trace to endpoint.
func ExportConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = endpoint
	return cfg
}

// ConfigFromEnv enables export when EndpointEnv is set.
func ConfigFromEnv(version string) Config {
	cfg := DefaultConfig()
	if endpoint := os.Getenv(EndpointEnv); endpoint != "" {
		cfg = ExportConfig(endpoint)
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}
