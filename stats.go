package napstore

import (
	"context"
	"time"

	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/settings"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/types"
)

// RevenuePeriod is revenue and order count over one window.
type RevenuePeriod struct {
	Revenue types.Money `json:"revenue"`
	Orders  int         `json:"orders"`
}

// RevenueStats is the admin dashboard snapshot.
type RevenueStats struct {
	Today RevenuePeriod `json:"today"`
	Month RevenuePeriod `json:"month"`
	Total RevenuePeriod `json:"total"`

	LaunchesToday      int64 `json:"launches_today"`
	LaunchesMonth      int64 `json:"launches_month"`
	ActiveDevicesToday int64 `json:"active_devices_today"`
}

// Stats computes revenue and usage figures, admin only. Revenue counts
// purchase and renewal debits; deposits and adjustments are balance
// movements, not sales.
func (e *Engine) Stats(ctx context.Context, actorID id.UserID, now time.Time) (*RevenueStats, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())

	stats := &RevenueStats{}

	for _, window := range []struct {
		since  time.Time
		period *RevenuePeriod
	}{
		{dayStart, &stats.Today},
		{monthStart, &stats.Month},
		{time.Time{}, &stats.Total},
	} {
		revenue, orders, err := e.revenueSince(ctx, window.since)
		if err != nil {
			return nil, err
		}
		window.period.Revenue = types.VND(revenue)
		window.period.Orders = orders
	}

	var err error
	date := now.Format("2006-01-02")
	month := now.Format("2006-01")

	if stats.LaunchesToday, err = e.store.CountUsageByDate(ctx, date); err != nil {
		return nil, err
	}
	if stats.LaunchesMonth, err = e.store.CountUsageByMonth(ctx, month); err != nil {
		return nil, err
	}
	if stats.ActiveDevicesToday, err = e.store.DistinctUsageHWIDsByDate(ctx, date); err != nil {
		return nil, err
	}

	return stats, nil
}

func (e *Engine) revenueSince(ctx context.Context, since time.Time) (int64, int, error) {
	var revenue int64
	var orders int

	for _, t := range []txn.Type{txn.TypeLicensePurchase, txn.TypeRenewal, txn.TypeDailyRenewal} {
		entries, err := e.store.ListTransactions(ctx, txn.ListOpts{Type: t, Since: since})
		if err != nil {
			return 0, 0, err
		}
		for _, entry := range entries {
			revenue += -entry.Amount
			orders++
		}
	}
	return revenue, orders, nil
}

// ──────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────

// BankSettings returns the configured receiving account.
func (e *Engine) BankSettings(ctx context.Context) (settings.Bank, error) {
	return e.store.GetBankSettings(ctx)
}

// SetBankSettings updates the receiving account, admin only.
func (e *Engine) SetBankSettings(ctx context.Context, actorID id.UserID, b settings.Bank) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.SetBankSettings(ctx, b)
}

// TelegramSettings returns the notification channel configuration.
func (e *Engine) TelegramSettings(ctx context.Context) (settings.Telegram, error) {
	return e.store.GetTelegramSettings(ctx)
}

// SetTelegramSettings updates the notification channel, admin only.
func (e *Engine) SetTelegramSettings(ctx context.Context, actorID id.UserID, t settings.Telegram) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.SetTelegramSettings(ctx, t)
}

// Software returns the advertised client build.
func (e *Engine) Software(ctx context.Context) (settings.Software, error) {
	return e.store.GetSoftwareSettings(ctx)
}

// UpdateSoftware publishes a new client build, admin only.
func (e *Engine) UpdateSoftware(ctx context.Context, actorID id.UserID, sw settings.Software) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.SetSoftwareSettings(ctx, sw)
}

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

// Products lists the sellable catalog.
func (e *Engine) Products(ctx context.Context) ([]*catalog.Product, error) {
	return e.store.ListProducts(ctx)
}

// Product returns one catalog entry.
func (e *Engine) Product(ctx context.Context, key string) (*catalog.Product, error) {
	return e.store.GetProduct(ctx, key)
}

// UpsertProduct reprices or adds a catalog entry, admin only.
func (e *Engine) UpsertProduct(ctx context.Context, actorID id.UserID, p *catalog.Product) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.UpsertProduct(ctx, p)
}
