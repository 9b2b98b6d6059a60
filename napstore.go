package napstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/plugin"
	"github.com/phamhp/napstore/store"
	"github.com/phamhp/napstore/usagelog"
)

// Gate is an anti-abuse hook consulted before user-initiated writes.
// A nil gate allows everything.
type Gate interface {
	Allow(ctx context.Context, userID id.UserID, action string) bool
}

// Gate action labels.
const (
	ActionCreateDeposit   = "deposit.create"
	ActionPurchaseLicense = "license.purchase"
	ActionRenewLicense    = "license.renew"
)

// Engine is the main storefront engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	gate    Gate

	// Background workers
	usageBuffer chan *usagelog.Event
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// Configuration
	usageBatchSize     int
	usageFlushInterval time.Duration
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		plugins:            plugin.NewRegistry(),
		logger:             slog.Default(),
		usageBuffer:        make(chan *usagelog.Event, 10000),
		stopChan:           make(chan struct{}),
		usageBatchSize:     100,
		usageFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithGate sets the anti-abuse gate.
func WithGate(g Gate) Option {
	return func(e *Engine) {
		e.gate = g
	}
}

// WithUsageConfig configures usage logging parameters.
func WithUsageConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		e.usageBatchSize = batchSize
		e.usageFlushInterval = flushInterval
	}
}

// Plugins exposes the plugin registry, mainly so transport adapters can
// emit events.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Seed the product catalog on first run
	if err := e.seedCatalog(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start usage flush worker
	e.wg.Add(1)
	go e.usageFlushWorker(ctx)

	e.logger.Info("napstore started",
		"batch_size", e.usageBatchSize,
		"flush_interval", e.usageFlushInterval,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

func (e *Engine) seedCatalog(ctx context.Context) error {
	existing, err := e.store.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range catalog.Defaults() {
		if err := e.store.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) allow(ctx context.Context, userID id.UserID, action string) error {
	if e.gate == nil {
		return nil
	}
	if !e.gate.Allow(ctx, userID, action) {
		return ErrRateLimited
	}
	return nil
}

// ──────────────────────────────────────────────────
// Usage logging
// ──────────────────────────────────────────────────

// LogUsage records a client heartbeat for a license (non-blocking).
func (e *Engine) LogUsage(ctx context.Context, licenseID id.LicenseID, hwid string) error {
	lic, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return err
	}

	event := usagelog.NewEvent(lic.ID, lic.UserID, lic.Product, hwid, time.Now())

	select {
	case e.usageBuffer <- event:
		return nil
	default:
		return ErrUsageBufferFull
	}
}

// usageFlushWorker flushes usage events to the store.
func (e *Engine) usageFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	batch := make([]*usagelog.Event, 0, e.usageBatchSize)
	ticker := time.NewTicker(e.usageFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Final flush
			if len(batch) > 0 {
				e.flushUsageBatch(ctx, batch)
			}
			return

		case event := <-e.usageBuffer:
			batch = append(batch, event)
			if len(batch) >= e.usageBatchSize {
				e.flushUsageBatch(ctx, batch)
				batch = make([]*usagelog.Event, 0, e.usageBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flushUsageBatch(ctx, batch)
				batch = make([]*usagelog.Event, 0, e.usageBatchSize)
			}
		}
	}
}

func (e *Engine) flushUsageBatch(ctx context.Context, batch []*usagelog.Event) {
	start := time.Now()

	if err := e.store.InsertUsageBatch(ctx, batch); err != nil {
		e.logger.Error("failed to flush usage batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	e.plugins.EmitUsageFlushed(ctx, len(batch), elapsed)

	e.logger.Debug("flushed usage batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
