package catalog

import "context"

type Store interface {
	Get(ctx context.Context, key string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Upsert(ctx context.Context, p *Product) error
}
