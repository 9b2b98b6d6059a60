// Package observability provides a metrics extension for napstore that
// records lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/phamhp/napstore/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnDepositCreated  = (*MetricsExtension)(nil)
	_ plugin.OnDepositSettled  = (*MetricsExtension)(nil)
	_ plugin.OnDepositRejected = (*MetricsExtension)(nil)
	_ plugin.OnAmountMismatch  = (*MetricsExtension)(nil)
	_ plugin.OnLicenseIssued   = (*MetricsExtension)(nil)
	_ plugin.OnLicenseRenewed  = (*MetricsExtension)(nil)
	_ plugin.OnLicenseRevoked  = (*MetricsExtension)(nil)
	_ plugin.OnHWIDBound       = (*MetricsExtension)(nil)
	_ plugin.OnHWIDReset       = (*MetricsExtension)(nil)
	_ plugin.OnUsageFlushed    = (*MetricsExtension)(nil)
	_ plugin.OnWebhookReceived = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track storefront metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Deposit metrics
	DepositCreated  Counter
	DepositSettled  Counter
	DepositRejected Counter
	AmountMismatch  Counter
	DepositAmount   Histogram

	// License metrics
	LicenseIssued  Counter
	LicenseRenewed Counter
	LicenseRevoked Counter
	HWIDBound      Counter
	HWIDReset      Counter

	// Usage metrics
	UsageBatchSize    Histogram
	UsageFlushLatency Histogram

	// Webhook metrics
	WebhookReceived Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Deposit metrics
		DepositCreated:  factory.Counter("napstore.deposit.created"),
		DepositSettled:  factory.Counter("napstore.deposit.settled"),
		DepositRejected: factory.Counter("napstore.deposit.rejected"),
		AmountMismatch:  factory.Counter("napstore.deposit.amount_mismatch"),
		DepositAmount:   factory.Histogram("napstore.deposit.amount"),

		// License metrics
		LicenseIssued:  factory.Counter("napstore.license.issued"),
		LicenseRenewed: factory.Counter("napstore.license.renewed"),
		LicenseRevoked: factory.Counter("napstore.license.revoked"),
		HWIDBound:      factory.Counter("napstore.license.hwid.bound"),
		HWIDReset:      factory.Counter("napstore.license.hwid.reset"),

		// Usage metrics
		UsageBatchSize:    factory.Histogram("napstore.usage.batch.size"),
		UsageFlushLatency: factory.Histogram("napstore.usage.flush.latency_ms"),

		// Webhook metrics
		WebhookReceived: factory.Counter("napstore.webhook.received"),

		// Error metrics
		StoreErrors:  factory.Counter("napstore.store.errors"),
		PluginErrors: factory.Counter("napstore.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Deposit lifecycle hooks
// ──────────────────────────────────────────────────

// OnDepositCreated implements plugin.OnDepositCreated.
func (m *MetricsExtension) OnDepositCreated(_ context.Context, _ interface{}) error {
	m.DepositCreated.Inc()
	return nil
}

// OnDepositSettled implements plugin.OnDepositSettled.
func (m *MetricsExtension) OnDepositSettled(_ context.Context, _ interface{}) error {
	m.DepositSettled.Inc()
	return nil
}

// OnDepositRejected implements plugin.OnDepositRejected.
func (m *MetricsExtension) OnDepositRejected(_ context.Context, _ interface{}) error {
	m.DepositRejected.Inc()
	return nil
}

// OnAmountMismatch implements plugin.OnAmountMismatch.
func (m *MetricsExtension) OnAmountMismatch(_ context.Context, _ string, _, received int64) error {
	m.AmountMismatch.Inc()
	m.DepositAmount.Observe(float64(received))
	return nil
}

// ──────────────────────────────────────────────────
// License lifecycle hooks
// ──────────────────────────────────────────────────

// OnLicenseIssued implements plugin.OnLicenseIssued.
func (m *MetricsExtension) OnLicenseIssued(_ context.Context, _ interface{}) error {
	m.LicenseIssued.Inc()
	return nil
}

// OnLicenseRenewed implements plugin.OnLicenseRenewed.
func (m *MetricsExtension) OnLicenseRenewed(_ context.Context, _ interface{}) error {
	m.LicenseRenewed.Inc()
	return nil
}

// OnLicenseRevoked implements plugin.OnLicenseRevoked.
func (m *MetricsExtension) OnLicenseRevoked(_ context.Context, _ interface{}) error {
	m.LicenseRevoked.Inc()
	return nil
}

// OnHWIDBound implements plugin.OnHWIDBound.
func (m *MetricsExtension) OnHWIDBound(_ context.Context, _ interface{}, _ string) error {
	m.HWIDBound.Inc()
	return nil
}

// OnHWIDReset implements plugin.OnHWIDReset.
func (m *MetricsExtension) OnHWIDReset(_ context.Context, _ interface{}) error {
	m.HWIDReset.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Usage and webhook hooks
// ──────────────────────────────────────────────────

// OnUsageFlushed implements plugin.OnUsageFlushed.
func (m *MetricsExtension) OnUsageFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.UsageBatchSize.Observe(float64(count))
	m.UsageFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (m *MetricsExtension) OnWebhookReceived(_ context.Context, _ string, _ []byte) error {
	m.WebhookReceived.Inc()
	return nil
}
