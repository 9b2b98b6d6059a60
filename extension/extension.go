// Package extension provides the Forge extension adapter for napstore.
//
// It implements the forge.Extension interface to integrate napstore
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.napstore" or "napstore" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/store"
	"github.com/phamhp/napstore/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "napstore"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "License storefront engine with balance-ledger accounting"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts napstore as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *napstore.Engine
	store      store.Store
	engineOpts []napstore.Option
}

// New creates a new napstore Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying napstore instance.
// This is nil until Register is called.
func (e *Extension) Engine() *napstore.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := napstore.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*napstore.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("napstore: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("napstore: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs napstore.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []napstore.Option {
	opts := make([]napstore.Option, 0, len(e.engineOpts)+1)

	// Apply config-derived options.
	if e.config.UsageBatchSize > 0 || e.config.UsageFlushInterval > 0 {
		batchSize := e.config.UsageBatchSize
		flushInterval := e.config.UsageFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.UsageBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.UsageFlushInterval
		}
		opts = append(opts, napstore.WithUsageConfig(batchSize, flushInterval))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("napstore: configuration is required but not found in config files; " +
				"ensure 'extensions.napstore' or 'napstore' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("napstore: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("usage_batch_size", e.config.UsageBatchSize),
		forge.F("usage_flush_interval", e.config.UsageFlushInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.napstore" first (namespaced pattern).
	if cm.IsSet("extensions.napstore") {
		if err := cm.Bind("extensions.napstore", &cfg); err == nil {
			e.Logger().Debug("napstore: loaded config from file",
				forge.F("key", "extensions.napstore"),
			)
			return cfg, true
		}
		e.Logger().Warn("napstore: failed to bind extensions.napstore config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "napstore" key.
	if cm.IsSet("napstore") {
		if err := cm.Bind("napstore", &cfg); err == nil {
			e.Logger().Debug("napstore: loaded config from file",
				forge.F("key", "napstore"),
			)
			return cfg, true
		}
		e.Logger().Warn("napstore: failed to bind napstore config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.UsageBatchSize == 0 {
		cfg.UsageBatchSize = defaults.UsageBatchSize
	}
	if cfg.UsageFlushInterval == 0 {
		cfg.UsageFlushInterval = defaults.UsageFlushInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.UsageBatchSize == 0 && programmaticConfig.UsageBatchSize != 0 {
		yamlConfig.UsageBatchSize = programmaticConfig.UsageBatchSize
	}
	if yamlConfig.UsageFlushInterval == 0 && programmaticConfig.UsageFlushInterval != 0 {
		yamlConfig.UsageFlushInterval = programmaticConfig.UsageFlushInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
