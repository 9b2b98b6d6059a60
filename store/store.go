package store

import (
	"context"

	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/settings"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/usagelog"
	"github.com/phamhp/napstore/user"
)

// Store is the unified storage interface for all napstore entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// User methods
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userID id.UserID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, userID id.UserID) error

	// IncrementBalance applies a signed delta to the user's balance as
	// a single atomic increment. It never reads the balance first.
	IncrementBalance(ctx context.Context, userID id.UserID, delta int64) error

	// Deposit methods
	CreateDeposit(ctx context.Context, d *deposit.Deposit) error
	GetDeposit(ctx context.Context, depositID id.DepositID) (*deposit.Deposit, error)
	GetDepositByOrderID(ctx context.Context, orderID string) (*deposit.Deposit, error)
	ListDeposits(ctx context.Context, opts deposit.ListOpts) ([]*deposit.Deposit, error)
	CountPendingDeposits(ctx context.Context, userID id.UserID) (int, error)
	UpdateDeposit(ctx context.Context, d *deposit.Deposit) error

	// License methods
	CreateLicense(ctx context.Context, l *license.License) error
	GetLicense(ctx context.Context, licenseID id.LicenseID) (*license.License, error)
	GetLicenseByKey(ctx context.Context, key string) (*license.License, error)
	ListLicenses(ctx context.Context, opts license.ListOpts) ([]*license.License, error)
	UpdateLicense(ctx context.Context, l *license.License) error
	DeleteLicense(ctx context.Context, licenseID id.LicenseID) error
	FindLicenseByHWID(ctx context.Context, hwid string) (*license.License, error)
	FindLicensesByHWIDHistory(ctx context.Context, hwid string) ([]*license.License, error)

	// Transaction methods
	CreateTransaction(ctx context.Context, t *txn.Transaction) error
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*txn.Transaction, error)
	ListTransactions(ctx context.Context, opts txn.ListOpts) ([]*txn.Transaction, error)
	SumTransactionsByUser(ctx context.Context, userID id.UserID) (int64, error)

	// Atomic composites. Every balance change lands together with its
	// ledger entry and the state flip that justifies it, or not at all.

	// SettleDeposit flips a pending deposit to completed, credits the
	// user with the received amount and appends the deposit ledger
	// entry. Returns deposit.ErrDepositNotPending (wrapped by the
	// engine) when the deposit was already settled or rejected, so a
	// replayed webhook cannot double-credit.
	SettleDeposit(ctx context.Context, depositID id.DepositID, received int64, raw map[string]any, entry *txn.Transaction) (*deposit.Deposit, error)

	// PurchaseLicense debits the user if and only if their balance
	// covers the price, inserts the license and appends the purchase
	// ledger entry.
	PurchaseLicense(ctx context.Context, userID id.UserID, price int64, l *license.License, entry *txn.Transaction) error

	// RenewLicense debits the user if and only if their balance covers
	// the fee, updates the license and appends the renewal ledger
	// entry.
	RenewLicense(ctx context.Context, userID id.UserID, fee int64, l *license.License, entry *txn.Transaction) error

	// AdjustBalance applies a signed admin adjustment together with
	// its ledger entry.
	AdjustBalance(ctx context.Context, userID id.UserID, delta int64, entry *txn.Transaction) error

	// Settings methods
	GetBankSettings(ctx context.Context) (settings.Bank, error)
	SetBankSettings(ctx context.Context, b settings.Bank) error
	GetTelegramSettings(ctx context.Context) (settings.Telegram, error)
	SetTelegramSettings(ctx context.Context, t settings.Telegram) error
	GetSoftwareSettings(ctx context.Context) (settings.Software, error)
	SetSoftwareSettings(ctx context.Context, s settings.Software) error

	// Catalog methods
	GetProduct(ctx context.Context, key string) (*catalog.Product, error)
	ListProducts(ctx context.Context) ([]*catalog.Product, error)
	UpsertProduct(ctx context.Context, p *catalog.Product) error

	// Usage methods
	InsertUsageBatch(ctx context.Context, events []*usagelog.Event) error
	CountUsageByDate(ctx context.Context, date string) (int64, error)
	CountUsageByMonth(ctx context.Context, month string) (int64, error)
	DistinctUsageHWIDsByDate(ctx context.Context, date string) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
