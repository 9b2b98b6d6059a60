package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onDepositCreated  []OnDepositCreated
	onDepositSettled  []OnDepositSettled
	onDepositRejected []OnDepositRejected
	onAmountMismatch  []OnAmountMismatch
	onLicenseIssued   []OnLicenseIssued
	onLicenseRenewed  []OnLicenseRenewed
	onLicenseRevoked  []OnLicenseRevoked
	onHWIDBound       []OnHWIDBound
	onHWIDReset       []OnHWIDReset
	onUsageFlushed    []OnUsageFlushed
	onWebhookReceived []OnWebhookReceived
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnDepositCreated); ok {
		r.onDepositCreated = append(r.onDepositCreated, v)
	}
	if v, ok := p.(OnDepositSettled); ok {
		r.onDepositSettled = append(r.onDepositSettled, v)
	}
	if v, ok := p.(OnDepositRejected); ok {
		r.onDepositRejected = append(r.onDepositRejected, v)
	}
	if v, ok := p.(OnAmountMismatch); ok {
		r.onAmountMismatch = append(r.onAmountMismatch, v)
	}
	if v, ok := p.(OnLicenseIssued); ok {
		r.onLicenseIssued = append(r.onLicenseIssued, v)
	}
	if v, ok := p.(OnLicenseRenewed); ok {
		r.onLicenseRenewed = append(r.onLicenseRenewed, v)
	}
	if v, ok := p.(OnLicenseRevoked); ok {
		r.onLicenseRevoked = append(r.onLicenseRevoked, v)
	}
	if v, ok := p.(OnHWIDBound); ok {
		r.onHWIDBound = append(r.onHWIDBound, v)
	}
	if v, ok := p.(OnHWIDReset); ok {
		r.onHWIDReset = append(r.onHWIDReset, v)
	}
	if v, ok := p.(OnUsageFlushed); ok {
		r.onUsageFlushed = append(r.onUsageFlushed, v)
	}
	if v, ok := p.(OnWebhookReceived); ok {
		r.onWebhookReceived = append(r.onWebhookReceived, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnDepositCreated)(nil)).Elem(), "OnDepositCreated")
	checkInterface(reflect.TypeOf((*OnDepositSettled)(nil)).Elem(), "OnDepositSettled")
	checkInterface(reflect.TypeOf((*OnDepositRejected)(nil)).Elem(), "OnDepositRejected")
	checkInterface(reflect.TypeOf((*OnAmountMismatch)(nil)).Elem(), "OnAmountMismatch")
	checkInterface(reflect.TypeOf((*OnLicenseIssued)(nil)).Elem(), "OnLicenseIssued")
	checkInterface(reflect.TypeOf((*OnLicenseRenewed)(nil)).Elem(), "OnLicenseRenewed")
	checkInterface(reflect.TypeOf((*OnLicenseRevoked)(nil)).Elem(), "OnLicenseRevoked")
	checkInterface(reflect.TypeOf((*OnHWIDBound)(nil)).Elem(), "OnHWIDBound")
	checkInterface(reflect.TypeOf((*OnHWIDReset)(nil)).Elem(), "OnHWIDReset")
	checkInterface(reflect.TypeOf((*OnUsageFlushed)(nil)).Elem(), "OnUsageFlushed")
	checkInterface(reflect.TypeOf((*OnWebhookReceived)(nil)).Elem(), "OnWebhookReceived")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDepositCreated emits a deposit created event.
func (r *Registry) EmitDepositCreated(ctx context.Context, dep interface{}) {
	r.mu.RLock()
	plugins := r.onDepositCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDepositCreated(ctx, dep)
		}); err != nil {
			r.logger.Warn("plugin OnDepositCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDepositSettled emits a deposit settled event.
func (r *Registry) EmitDepositSettled(ctx context.Context, dep interface{}) {
	r.mu.RLock()
	plugins := r.onDepositSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDepositSettled(ctx, dep)
		}); err != nil {
			r.logger.Warn("plugin OnDepositSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDepositRejected emits a deposit rejected event.
func (r *Registry) EmitDepositRejected(ctx context.Context, dep interface{}) {
	r.mu.RLock()
	plugins := r.onDepositRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDepositRejected(ctx, dep)
		}); err != nil {
			r.logger.Warn("plugin OnDepositRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAmountMismatch emits an amount mismatch event.
func (r *Registry) EmitAmountMismatch(ctx context.Context, orderID string, requested, received int64) {
	r.mu.RLock()
	plugins := r.onAmountMismatch
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAmountMismatch(ctx, orderID, requested, received)
		}); err != nil {
			r.logger.Warn("plugin OnAmountMismatch failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLicenseIssued emits a license issued event.
func (r *Registry) EmitLicenseIssued(ctx context.Context, lic interface{}) {
	r.mu.RLock()
	plugins := r.onLicenseIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLicenseIssued(ctx, lic)
		}); err != nil {
			r.logger.Warn("plugin OnLicenseIssued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLicenseRenewed emits a license renewed event.
func (r *Registry) EmitLicenseRenewed(ctx context.Context, lic interface{}) {
	r.mu.RLock()
	plugins := r.onLicenseRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLicenseRenewed(ctx, lic)
		}); err != nil {
			r.logger.Warn("plugin OnLicenseRenewed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLicenseRevoked emits a license revoked event.
func (r *Registry) EmitLicenseRevoked(ctx context.Context, lic interface{}) {
	r.mu.RLock()
	plugins := r.onLicenseRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLicenseRevoked(ctx, lic)
		}); err != nil {
			r.logger.Warn("plugin OnLicenseRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitHWIDBound emits a hardware binding event.
func (r *Registry) EmitHWIDBound(ctx context.Context, lic interface{}, hwid string) {
	r.mu.RLock()
	plugins := r.onHWIDBound
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnHWIDBound(ctx, lic, hwid)
		}); err != nil {
			r.logger.Warn("plugin OnHWIDBound failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitHWIDReset emits a hardware binding reset event.
func (r *Registry) EmitHWIDReset(ctx context.Context, lic interface{}) {
	r.mu.RLock()
	plugins := r.onHWIDReset
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnHWIDReset(ctx, lic)
		}); err != nil {
			r.logger.Warn("plugin OnHWIDReset failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUsageFlushed emits a usage flushed event.
func (r *Registry) EmitUsageFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onUsageFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsageFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnUsageFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWebhookReceived emits a webhook received event.
func (r *Registry) EmitWebhookReceived(ctx context.Context, gateway string, payload []byte) {
	r.mu.RLock()
	plugins := r.onWebhookReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWebhookReceived(ctx, gateway, payload)
		}); err != nil {
			r.logger.Warn("plugin OnWebhookReceived failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the storefront pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
