package deposit

import (
	"time"

	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

const (
	// MinimumAmount is the smallest accepted deposit in dong.
	MinimumAmount int64 = 10000

	// MaxPending caps the number of simultaneously open deposit
	// requests per user.
	MaxPending = 3

	// AmountTolerance is the largest gap between the requested and the
	// received transfer amount the reconciler settles silently. Bigger
	// gaps still settle and credit the received amount, but the
	// mismatch is logged and surfaced to the admin hooks.
	AmountTolerance int64 = 1000
)

// Deposit is a bank-transfer top-up request. The user transfers money
// with OrderID in the description; the bank webhook matches it back.
type Deposit struct {
	types.Entity
	ID      id.DepositID `json:"id"`
	UserID  id.UserID    `json:"user_id"`
	OrderID string       `json:"order_id"`
	Status  Status       `json:"status"`

	// Amount is the requested amount; ActualAmount is what the bank
	// reported once the transfer arrived. They may differ within
	// AmountTolerance.
	Amount       int64 `json:"amount"`
	ActualAmount int64 `json:"actual_amount,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`

	// Raw keeps the webhook payload that settled this deposit, for
	// reconciliation audits.
	Raw map[string]any `json:"raw,omitempty"`
}

// AmountMoney returns the requested amount as a Money value.
func (d *Deposit) AmountMoney() types.Money {
	return types.VND(d.Amount)
}

// IsPending reports whether the deposit is still awaiting a transfer.
func (d *Deposit) IsPending() bool {
	return d.Status == StatusPending
}
