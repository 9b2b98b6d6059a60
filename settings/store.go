package settings

import "context"

type Store interface {
	GetBank(ctx context.Context) (Bank, error)
	SetBank(ctx context.Context, b Bank) error
	GetTelegram(ctx context.Context) (Telegram, error)
	SetTelegram(ctx context.Context, t Telegram) error
	GetSoftware(ctx context.Context) (Software, error)
	SetSoftware(ctx context.Context, s Software) error
}
