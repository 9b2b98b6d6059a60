package extension

import "time"

// Config holds the napstore extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.napstore" or "napstore" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for napstore routes (default: "/napstore").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// UsageBatchSize is the number of usage events to buffer before flushing
	// to the store (default: 100).
	UsageBatchSize int `json:"usage_batch_size" mapstructure:"usage_batch_size" yaml:"usage_batch_size"`

	// UsageFlushInterval is how frequently the usage buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	UsageFlushInterval time.Duration `json:"usage_flush_interval" mapstructure:"usage_flush_interval" yaml:"usage_flush_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:           "/napstore",
		UsageBatchSize:     100,
		UsageFlushInterval: 5 * time.Second,
	}
}
