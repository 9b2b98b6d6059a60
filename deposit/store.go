package deposit

import (
	"context"

	"github.com/phamhp/napstore/id"
)

type Store interface {
	Create(ctx context.Context, d *Deposit) error
	Get(ctx context.Context, depositID id.DepositID) (*Deposit, error)
	GetByOrderID(ctx context.Context, orderID string) (*Deposit, error)
	List(ctx context.Context, opts ListOpts) ([]*Deposit, error)
	CountPending(ctx context.Context, userID id.UserID) (int, error)
	Update(ctx context.Context, d *Deposit) error
}

type ListOpts struct {
	UserID id.UserID
	Status Status
	Limit  int
	Offset int
}
