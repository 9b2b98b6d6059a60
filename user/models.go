package user

import (
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/types"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a storefront customer account. Balance is the prepaid wallet
// in whole Vietnamese dong; it only changes through ledgered operations
// (deposit credit, purchase debit, renewal debit, admin adjustment).
type User struct {
	types.Entity
	ID          id.UserID         `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name,omitempty"`
	Role        Role              `json:"role"`
	Balance     int64             `json:"balance"`
	Disabled    bool              `json:"disabled,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// BalanceMoney returns the wallet balance as a Money value.
func (u *User) BalanceMoney() types.Money {
	return types.VND(u.Balance)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
