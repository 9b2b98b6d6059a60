package user

import (
	"context"

	"github.com/phamhp/napstore/id"
)

type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID id.UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, opts ListOpts) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, userID id.UserID) error
}

type ListOpts struct {
	Role   Role
	Limit  int
	Offset int
}
