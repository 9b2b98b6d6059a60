package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/plugin"
	"github.com/phamhp/napstore/store"
	mongostore "github.com/phamhp/napstore/store/mongo"
)

// Option configures the napstore Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithDatabase builds the document store from a grove database handle.
func WithDatabase(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongostore.New(db)
	}
}

// WithEngineOption passes a napstore.Option through to the underlying engine.
func WithEngineOption(opt napstore.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, napstore.WithPlugin(p))
	}
}

// WithGate sets the anti-abuse gate on the engine.
func WithGate(g napstore.Gate) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, napstore.WithGate(g))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for napstore routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithUsageBatchSize sets the number of usage events to buffer before flushing.
func WithUsageBatchSize(size int) Option {
	return func(e *Extension) { e.config.UsageBatchSize = size }
}

// WithUsageFlushInterval sets how frequently the usage buffer is flushed.
func WithUsageFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.UsageFlushInterval = d }
}
