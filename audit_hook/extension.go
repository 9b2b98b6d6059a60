// Package audithook bridges napstore lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnDepositCreated  = (*Extension)(nil)
	_ plugin.OnDepositSettled  = (*Extension)(nil)
	_ plugin.OnDepositRejected = (*Extension)(nil)
	_ plugin.OnAmountMismatch  = (*Extension)(nil)
	_ plugin.OnLicenseIssued   = (*Extension)(nil)
	_ plugin.OnLicenseRenewed  = (*Extension)(nil)
	_ plugin.OnLicenseRevoked  = (*Extension)(nil)
	_ plugin.OnHWIDBound       = (*Extension)(nil)
	_ plugin.OnHWIDReset       = (*Extension)(nil)
	_ plugin.OnUsageFlushed    = (*Extension)(nil)
	_ plugin.OnWebhookReceived = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges napstore lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Deposit lifecycle hooks
// ──────────────────────────────────────────────────

// OnDepositCreated implements plugin.OnDepositCreated.
func (e *Extension) OnDepositCreated(ctx context.Context, dep interface{}) error {
	id, meta := depositFields(dep)
	return e.record(ctx, ActionDepositCreated, SeverityInfo, OutcomeSuccess,
		ResourceDeposit, id, CategoryPayment, nil, meta...)
}

// OnDepositSettled implements plugin.OnDepositSettled.
func (e *Extension) OnDepositSettled(ctx context.Context, dep interface{}) error {
	id, meta := depositFields(dep)
	return e.record(ctx, ActionDepositSettled, SeverityInfo, OutcomeSuccess,
		ResourceDeposit, id, CategoryPayment, nil, meta...)
}

// OnDepositRejected implements plugin.OnDepositRejected.
func (e *Extension) OnDepositRejected(ctx context.Context, dep interface{}) error {
	id, meta := depositFields(dep)
	return e.record(ctx, ActionDepositRejected, SeverityWarning, OutcomeSuccess,
		ResourceDeposit, id, CategoryPayment, nil, meta...)
}

// OnAmountMismatch implements plugin.OnAmountMismatch.
func (e *Extension) OnAmountMismatch(ctx context.Context, orderID string, requested, received int64) error {
	return e.record(ctx, ActionAmountMismatch, SeverityWarning, OutcomePartial,
		ResourceDeposit, orderID, CategoryPayment, nil,
		"order_id", orderID,
		"requested", requested,
		"received", received,
	)
}

// ──────────────────────────────────────────────────
// License lifecycle hooks
// ──────────────────────────────────────────────────

// OnLicenseIssued implements plugin.OnLicenseIssued.
func (e *Extension) OnLicenseIssued(ctx context.Context, lic interface{}) error {
	id, meta := licenseFields(lic)
	return e.record(ctx, ActionLicenseIssued, SeverityInfo, OutcomeSuccess,
		ResourceLicense, id, CategoryLicensing, nil, meta...)
}

// OnLicenseRenewed implements plugin.OnLicenseRenewed.
func (e *Extension) OnLicenseRenewed(ctx context.Context, lic interface{}) error {
	id, meta := licenseFields(lic)
	return e.record(ctx, ActionLicenseRenewed, SeverityInfo, OutcomeSuccess,
		ResourceLicense, id, CategoryLicensing, nil, meta...)
}

// OnLicenseRevoked implements plugin.OnLicenseRevoked.
func (e *Extension) OnLicenseRevoked(ctx context.Context, lic interface{}) error {
	id, meta := licenseFields(lic)
	return e.record(ctx, ActionLicenseRevoked, SeverityWarning, OutcomeSuccess,
		ResourceLicense, id, CategoryLicensing, nil, meta...)
}

// OnHWIDBound implements plugin.OnHWIDBound.
func (e *Extension) OnHWIDBound(ctx context.Context, lic interface{}, hwid string) error {
	id, meta := licenseFields(lic)
	meta = append(meta, "hwid", hwid)
	return e.record(ctx, ActionHWIDBound, SeverityInfo, OutcomeSuccess,
		ResourceLicense, id, CategoryLicensing, nil, meta...)
}

// OnHWIDReset implements plugin.OnHWIDReset.
func (e *Extension) OnHWIDReset(ctx context.Context, lic interface{}) error {
	id, meta := licenseFields(lic)
	return e.record(ctx, ActionHWIDReset, SeverityInfo, OutcomeSuccess,
		ResourceLicense, id, CategoryLicensing, nil, meta...)
}

// ──────────────────────────────────────────────────
// Usage and webhook hooks
// ──────────────────────────────────────────────────

// OnUsageFlushed implements plugin.OnUsageFlushed.
func (e *Extension) OnUsageFlushed(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionUsageFlushed, SeverityInfo, OutcomeSuccess,
		ResourceUsage, "", CategoryUsage, nil,
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (e *Extension) OnWebhookReceived(ctx context.Context, gateway string, payload []byte) error {
	return e.record(ctx, ActionWebhookReceived, SeverityInfo, OutcomeSuccess,
		ResourceWebhook, gateway, CategoryIntegration, nil,
		"gateway", gateway,
		"payload_bytes", len(payload),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func depositFields(dep interface{}) (string, []any) {
	d, ok := dep.(*deposit.Deposit)
	if !ok {
		return "", nil
	}
	return d.ID.String(), []any{
		"order_id", d.OrderID,
		"user_id", d.UserID.String(),
		"amount", d.Amount,
		"status", string(d.Status),
	}
}

func licenseFields(lic interface{}) (string, []any) {
	l, ok := lic.(*license.License)
	if !ok {
		return "", nil
	}
	return l.ID.String(), []any{
		"user_id", l.UserID.String(),
		"product", l.Product,
		"plan", string(l.Plan),
		"status", string(l.Status),
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
