package license

import (
	"context"

	"github.com/phamhp/napstore/id"
)

type Store interface {
	Create(ctx context.Context, l *License) error
	Get(ctx context.Context, licenseID id.LicenseID) (*License, error)
	GetByKey(ctx context.Context, key string) (*License, error)
	List(ctx context.Context, opts ListOpts) ([]*License, error)
	Update(ctx context.Context, l *License) error
	Delete(ctx context.Context, licenseID id.LicenseID) error

	// FindByHWID returns the license currently bound to the
	// fingerprint, if any.
	FindByHWID(ctx context.Context, hwid string) (*License, error)

	// FindByHWIDHistory returns licenses whose binding history
	// contains the fingerprint, bound or not.
	FindByHWIDHistory(ctx context.Context, hwid string) ([]*License, error)
}

type ListOpts struct {
	UserID  id.UserID
	Product string
	Status  Status
	Limit   int
	Offset  int
}
