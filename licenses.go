package napstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/types"
)

// ──────────────────────────────────────────────────
// License Lifecycle
// ──────────────────────────────────────────────────

// Purchase buys a plan of a product from the user's balance. The debit,
// the new license and the ledger entry land atomically; insufficient
// funds roll everything back.
func (e *Engine) Purchase(ctx context.Context, userID id.UserID, productKey string, plan license.Plan) (*license.License, error) {
	if err := e.allow(ctx, userID, ActionPurchaseLicense); err != nil {
		return nil, err
	}

	p, err := e.store.GetProduct(ctx, productKey)
	if err != nil {
		return nil, err
	}
	if p.Disabled {
		return nil, ErrProductNotFound
	}
	price, ok := p.PlanPrice(plan)
	if !ok {
		return nil, ErrPlanNotFound
	}

	now := time.Now().UTC()
	l := &license.License{
		Entity:    types.NewEntity(),
		ID:        id.NewLicenseID(),
		UserID:    userID,
		Key:       license.NewKey(),
		Product:   p.Key,
		Plan:      plan,
		Status:    license.StatusActive,
		ExpiresAt: license.ExpiryForPlan(plan, now),
	}

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      userID,
		Type:        txn.TypeLicensePurchase,
		Amount:      -price.Amount,
		Description: fmt.Sprintf("Purchase %s (%s)", p.Name, plan),
		LicenseID:   l.ID,
		Product:     p.Key,
		At:          now,
	}

	if err := e.store.PurchaseLicense(ctx, userID, price.Amount, l, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitLicenseIssued(ctx, l)

	e.logger.Info("license purchased",
		"license_id", l.ID.String(),
		"user_id", userID.String(),
		"product", p.Key,
		"plan", string(plan),
		"price", price.Amount,
	)
	return l, nil
}

// Issue creates a license without charging anyone, admin only. With an
// owner the license starts active; without one it stays pending until
// assigned and bound.
func (e *Engine) Issue(ctx context.Context, actorID id.UserID, ownerID id.UserID, productKey string, plan license.Plan) (*license.License, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	p, err := e.store.GetProduct(ctx, productKey)
	if err != nil {
		return nil, err
	}
	if _, ok := p.PlanPrice(plan); !ok {
		return nil, ErrPlanNotFound
	}

	now := time.Now().UTC()
	l := &license.License{
		Entity:    types.NewEntity(),
		ID:        id.NewLicenseID(),
		UserID:    ownerID,
		Key:       license.NewKey(),
		Product:   p.Key,
		Plan:      plan,
		Status:    license.StatusPending,
		ExpiresAt: license.ExpiryForPlan(plan, now),
	}
	if !ownerID.IsNil() {
		l.Status = license.StatusActive
	}

	if err := e.store.CreateLicense(ctx, l); err != nil {
		return nil, err
	}

	e.plugins.EmitLicenseIssued(ctx, l)

	e.logger.Info("license issued",
		"license_id", l.ID.String(),
		"actor_id", actorID.String(),
		"product", p.Key,
		"plan", string(plan),
	)
	return l, nil
}

// GetLicense retrieves a license by ID.
func (e *Engine) GetLicense(ctx context.Context, licenseID id.LicenseID) (*license.License, error) {
	return e.store.GetLicense(ctx, licenseID)
}

// GetLicenseByKey retrieves a license by its key.
func (e *Engine) GetLicenseByKey(ctx context.Context, key string) (*license.License, error) {
	return e.store.GetLicenseByKey(ctx, license.NormalizeKey(key))
}

// ListLicenses lists licenses.
func (e *Engine) ListLicenses(ctx context.Context, opts license.ListOpts) ([]*license.License, error) {
	return e.store.ListLicenses(ctx, opts)
}

// DeleteLicense removes a license, admin only.
func (e *Engine) DeleteLicense(ctx context.Context, actorID id.UserID, licenseID id.LicenseID) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.DeleteLicense(ctx, licenseID)
}

// BindHardwareID attaches a hardware fingerprint to a license. A
// fingerprint can be live on at most one license, and one that ever
// belonged to another account is refused outright.
func (e *Engine) BindHardwareID(ctx context.Context, licenseID id.LicenseID, hwid string) (*license.License, error) {
	hwid = strings.TrimSpace(hwid)
	if len(hwid) < license.MinHWIDLength {
		return nil, ErrInvalidHWID
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	if l.Status == license.StatusRevoked {
		return nil, ErrLicenseRevoked
	}
	if l.HWID == hwid {
		return l, nil
	}
	if l.IsBound() {
		return nil, ErrHWIDInUse
	}

	if other, err := e.store.FindLicenseByHWID(ctx, hwid); err == nil && other.ID != l.ID {
		return nil, ErrHWIDInUse
	} else if err != nil && !IsNotFound(err) {
		return nil, err
	}

	holders, err := e.store.FindLicensesByHWIDHistory(ctx, hwid)
	if err != nil {
		return nil, err
	}
	for _, h := range holders {
		if h.UserID != l.UserID {
			return nil, ErrHWIDReused
		}
	}

	now := time.Now().UTC()
	l.HWID = hwid
	if !l.HistoryContains(hwid) {
		l.HWIDHistory = append(l.HWIDHistory, hwid)
	}
	if l.Status == license.StatusPending {
		l.Status = license.StatusActive
	}
	if l.ActivatedAt == nil {
		l.ActivatedAt = &now
	}
	l.Touch()

	// The unique sparse index on hwid backstops the lookups above under
	// concurrent binds.
	if err := e.store.UpdateLicense(ctx, l); err != nil {
		return nil, err
	}

	e.plugins.EmitHWIDBound(ctx, l, hwid)

	e.logger.Info("hardware id bound",
		"license_id", l.ID.String(),
		"user_id", l.UserID.String(),
	)
	return l, nil
}

// RequestHWIDReset flags a license for a binding reset. Owners request;
// admins perform.
func (e *Engine) RequestHWIDReset(ctx context.Context, userID id.UserID, licenseID id.LicenseID) error {
	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return err
	}
	if l.UserID != userID {
		return ErrForbidden
	}
	if !l.IsBound() {
		return ErrInvalidHWID
	}

	l.ResetRequested = true
	l.Touch()
	return e.store.UpdateLicense(ctx, l)
}

// ResetHardwareID clears the current binding, admin only. The old
// fingerprint stays in the history so it cannot wander to another
// account.
func (e *Engine) ResetHardwareID(ctx context.Context, actorID id.UserID, licenseID id.LicenseID) (*license.License, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	if !l.IsBound() {
		return nil, ErrInvalidHWID
	}

	if !l.HistoryContains(l.HWID) {
		l.HWIDHistory = append(l.HWIDHistory, l.HWID)
	}
	l.HWID = ""
	l.ResetRequested = false
	l.Touch()

	if err := e.store.UpdateLicense(ctx, l); err != nil {
		return nil, err
	}

	e.plugins.EmitHWIDReset(ctx, l)

	e.logger.Info("hardware id reset",
		"license_id", l.ID.String(),
		"actor_id", actorID.String(),
	)
	return l, nil
}

// Renew extends a license using one of the product's renewal options.
// Time stacks on top of the current expiry; lapsed licenses restart
// from now.
func (e *Engine) Renew(ctx context.Context, userID id.UserID, licenseID id.LicenseID, option string) (*license.License, error) {
	if err := e.allow(ctx, userID, ActionRenewLicense); err != nil {
		return nil, err
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, ErrForbidden
	}
	if l.Status == license.StatusRevoked {
		return nil, ErrLicenseRevoked
	}
	if l.IsLifetime() {
		return nil, ErrNotRenewable
	}

	p, err := e.store.GetProduct(ctx, l.Product)
	if err != nil {
		return nil, err
	}
	r, ok := p.RenewalOption(option)
	if !ok {
		return nil, ErrPlanNotFound
	}

	// Mutate a copy; the fetched license may alias store state, and a
	// failed debit must leave it untouched.
	now := time.Now().UTC()
	next := license.NextExpiry(l.ExpiresAt, now, r.Days)
	renewed := *l
	renewed.ExpiresAt = &next
	renewed.RenewedAt = &now
	renewed.Status = license.StatusActive
	renewed.Touch()

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      userID,
		Type:        txn.TypeRenewal,
		Amount:      -r.Price,
		Description: fmt.Sprintf("Renew %s (%s)", p.Name, option),
		LicenseID:   l.ID,
		Product:     p.Key,
		At:          now,
	}

	if err := e.store.RenewLicense(ctx, userID, r.Price, &renewed, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitLicenseRenewed(ctx, &renewed)

	e.logger.Info("license renewed",
		"license_id", renewed.ID.String(),
		"user_id", userID.String(),
		"option", option,
		"expires_at", next,
	)
	return &renewed, nil
}

// RenewDaily extends a daily license to the end of the next day for the
// flat daily fee.
func (e *Engine) RenewDaily(ctx context.Context, userID id.UserID, licenseID id.LicenseID) (*license.License, error) {
	if err := e.allow(ctx, userID, ActionRenewLicense); err != nil {
		return nil, err
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, ErrForbidden
	}
	if l.Status == license.StatusRevoked {
		return nil, ErrLicenseRevoked
	}
	if l.Plan != license.PlanDaily {
		return nil, ErrNotRenewable
	}

	// Same aliasing rule as Renew: extend a copy, not the fetched
	// license.
	now := time.Now().UTC()
	next := license.NextDailyExpiry(l.ExpiresAt, now)
	renewed := *l
	renewed.ExpiresAt = &next
	renewed.RenewedAt = &now
	renewed.Status = license.StatusActive
	renewed.Touch()

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      userID,
		Type:        txn.TypeDailyRenewal,
		Amount:      -catalog.DailyRenewalFee,
		Description: "Daily renewal",
		LicenseID:   l.ID,
		Product:     l.Product,
		At:          now,
	}

	if err := e.store.RenewLicense(ctx, userID, catalog.DailyRenewalFee, &renewed, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitLicenseRenewed(ctx, &renewed)
	return &renewed, nil
}

// Revoke disables a license, admin only.
func (e *Engine) Revoke(ctx context.Context, actorID id.UserID, licenseID id.LicenseID) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	l.Status = license.StatusRevoked
	l.RevokedAt = &now
	l.Touch()

	if err := e.store.UpdateLicense(ctx, l); err != nil {
		return err
	}

	e.plugins.EmitLicenseRevoked(ctx, l)

	e.logger.Info("license revoked",
		"license_id", l.ID.String(),
		"actor_id", actorID.String(),
	)
	return nil
}

// Activate lifts a revocation, admin only.
func (e *Engine) Activate(ctx context.Context, actorID id.UserID, licenseID id.LicenseID) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	l, err := e.store.GetLicense(ctx, licenseID)
	if err != nil {
		return err
	}

	l.Status = license.StatusActive
	l.RevokedAt = nil
	l.Touch()
	return e.store.UpdateLicense(ctx, l)
}

// CheckResult is the answer a client tool gets when validating its key.
type CheckResult struct {
	Valid   bool                  `json:"valid"`
	Status  license.DisplayStatus `json:"status"`
	Reason  string                `json:"reason,omitempty"`
	License *license.License      `json:"license,omitempty"`
}

// Validate answers a client's key check: the key must exist, the
// fingerprint must match the binding, and the derived status must be
// usable.
func (e *Engine) Validate(ctx context.Context, key, hwid string) (*CheckResult, error) {
	l, err := e.store.GetLicenseByKey(ctx, license.NormalizeKey(key))
	if err != nil {
		if IsNotFound(err) {
			return &CheckResult{Valid: false, Reason: "unknown key"}, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	status := license.DeriveStatus(l, now)

	result := &CheckResult{Status: status, License: l}
	switch {
	case l.IsBound() && l.HWID != hwid:
		result.Reason = "hardware mismatch"
	case !license.IsUsable(l, now):
		result.Reason = "license not usable"
	default:
		result.Valid = true
	}
	return result, nil
}
