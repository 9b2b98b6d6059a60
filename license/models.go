package license

import (
	"time"

	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/types"
)

type Status string

const (
	// StatusPending marks an issued license awaiting its first
	// hardware binding.
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type Plan string

const (
	PlanDaily    Plan = "daily"
	PlanMonthly  Plan = "monthly"
	PlanYearly   Plan = "yearly"
	PlanLifetime Plan = "lifetime"
)

// MinHWIDLength is the shortest accepted hardware fingerprint. Shorter
// values are almost always truncated or hand-typed garbage.
const MinHWIDLength = 20

// License grants one hardware-bound seat of a product.
type License struct {
	types.Entity
	ID      id.LicenseID `json:"id"`
	UserID  id.UserID    `json:"user_id"`
	Key     string       `json:"key"`
	Product string       `json:"product"`
	Plan    Plan         `json:"plan"`
	Status  Status       `json:"status"`

	// HWID is the currently bound hardware fingerprint, empty when
	// unbound. HWIDHistory records every fingerprint this license was
	// ever bound to; bindings are refused when the fingerprint appears
	// in another account's history.
	HWID        string   `json:"hwid,omitempty"`
	HWIDHistory []string `json:"hwid_history,omitempty"`

	// ExpiresAt is nil for lifetime licenses.
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	RenewedAt   *time.Time `json:"renewed_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`

	ResetRequested bool `json:"reset_requested,omitempty"`
}

// PriceMoney returns a plan price as a Money value.
func PriceMoney(amount int64) types.Money {
	return types.VND(amount)
}

// IsLifetime reports whether the license never expires.
func (l *License) IsLifetime() bool {
	return l.ExpiresAt == nil
}

// IsBound reports whether a hardware fingerprint is currently attached.
func (l *License) IsBound() bool {
	return l.HWID != ""
}

// HistoryContains reports whether the fingerprint appears in the
// binding history.
func (l *License) HistoryContains(hwid string) bool {
	for _, h := range l.HWIDHistory {
		if h == hwid {
			return true
		}
	}
	return false
}
