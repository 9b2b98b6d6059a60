package txn

import (
	"time"

	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/types"
)

// Type classifies a ledger entry. Revenue reporting keys off the
// purchase and renewal types.
type Type string

const (
	TypeDeposit         Type = "deposit"
	TypeLicensePurchase Type = "license_purchase"
	TypeRenewal         Type = "renewal"
	TypeDailyRenewal    Type = "daily_renewal"
	TypeAdminAdjustment Type = "admin_adjustment"
)

// Transaction is one immutable balance-ledger entry. Amount is signed:
// credits are positive, debits negative. The sum of a user's entries
// always equals their stored balance.
type Transaction struct {
	types.Entity
	ID          id.TransactionID `json:"id"`
	UserID      id.UserID        `json:"user_id"`
	Type        Type             `json:"type"`
	Amount      int64            `json:"amount"`
	Description string           `json:"description,omitempty"`

	DepositID id.DepositID `json:"deposit_id,omitempty"`
	LicenseID id.LicenseID `json:"license_id,omitempty"`
	Product   string       `json:"product,omitempty"`

	At time.Time `json:"at"`
}

// AmountMoney returns the signed entry amount as a Money value.
func (t *Transaction) AmountMoney() types.Money {
	return types.VND(t.Amount)
}

// IsDebit reports whether the entry reduced the balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// IsRevenue reports whether the entry counts toward sales revenue.
func (t *Transaction) IsRevenue() bool {
	switch t.Type {
	case TypeLicensePurchase, TypeRenewal, TypeDailyRenewal:
		return t.Amount < 0
	default:
		return false
	}
}
