// Package plugin provides an extensible plugin system for napstore.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Deposit lifecycle hooks
// ──────────────────────────────────────────────────

// OnDepositCreated is called when a deposit request is opened.
type OnDepositCreated interface {
	Plugin
	OnDepositCreated(ctx context.Context, dep interface{}) error
}

// OnDepositSettled is called when a deposit is matched to a bank
// transfer and credited.
type OnDepositSettled interface {
	Plugin
	OnDepositSettled(ctx context.Context, dep interface{}) error
}

// OnDepositRejected is called when an admin rejects a deposit.
type OnDepositRejected interface {
	Plugin
	OnDepositRejected(ctx context.Context, dep interface{}) error
}

// OnAmountMismatch is called when a transfer arrives whose amount
// differs from the matched deposit beyond tolerance.
type OnAmountMismatch interface {
	Plugin
	OnAmountMismatch(ctx context.Context, orderID string, requested, received int64) error
}

// ──────────────────────────────────────────────────
// License lifecycle hooks
// ──────────────────────────────────────────────────

// OnLicenseIssued is called when a license is created, whether bought
// by a user or issued by an admin.
type OnLicenseIssued interface {
	Plugin
	OnLicenseIssued(ctx context.Context, lic interface{}) error
}

// OnLicenseRenewed is called when a license expiry is extended.
type OnLicenseRenewed interface {
	Plugin
	OnLicenseRenewed(ctx context.Context, lic interface{}) error
}

// OnLicenseRevoked is called when a license is revoked.
type OnLicenseRevoked interface {
	Plugin
	OnLicenseRevoked(ctx context.Context, lic interface{}) error
}

// OnHWIDBound is called when a hardware fingerprint is attached.
type OnHWIDBound interface {
	Plugin
	OnHWIDBound(ctx context.Context, lic interface{}, hwid string) error
}

// OnHWIDReset is called when a binding is cleared.
type OnHWIDReset interface {
	Plugin
	OnHWIDReset(ctx context.Context, lic interface{}) error
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageFlushed is called when buffered usage events are flushed to
// the store.
type OnUsageFlushed interface {
	Plugin
	OnUsageFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Webhook hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived is called for every accepted webhook delivery,
// before reconciliation.
type OnWebhookReceived interface {
	Plugin
	OnWebhookReceived(ctx context.Context, gateway string, payload []byte) error
}
