package txn

import (
	"context"
	"time"

	"github.com/phamhp/napstore/id"
)

type Store interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, txnID id.TransactionID) (*Transaction, error)
	List(ctx context.Context, opts ListOpts) ([]*Transaction, error)

	// SumByUser returns the signed total of a user's entries; it must
	// equal the user's stored balance.
	SumByUser(ctx context.Context, userID id.UserID) (int64, error)
}

type ListOpts struct {
	UserID id.UserID
	Type   Type
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}
