// Package notify pushes storefront events to a Telegram channel via
// the Bot API. It plugs into the engine's hook registry; delivery is
// best-effort and never blocks a money-moving operation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/plugin"
	"github.com/phamhp/napstore/settings"
	"github.com/phamhp/napstore/types"
)

const botAPIBase = "https://api.telegram.org"

// SettingsSource resolves the current channel configuration. The engine
// satisfies it, so the notifier always reads the live settings.
type SettingsSource interface {
	TelegramSettings(ctx context.Context) (settings.Telegram, error)
}

// Telegram is an engine plugin announcing deposit activity to admins.
type Telegram struct {
	client *resty.Client
	logger *slog.Logger
	source SettingsSource
}

// Option configures the notifier.
type Option func(*Telegram)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Telegram) {
		t.logger = logger
	}
}

// WithBaseURL overrides the Bot API base URL, used by tests.
func WithBaseURL(base string) Option {
	return func(t *Telegram) {
		t.client.SetBaseURL(base)
	}
}

// NewTelegram creates the notifier plugin.
func NewTelegram(opts ...Option) *Telegram {
	t := &Telegram{
		client: resty.New().
			SetBaseURL(botAPIBase).
			SetTimeout(10 * time.Second),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements plugin.Plugin.
func (t *Telegram) Name() string {
	return "telegram-notify"
}

// OnInit captures the engine as the settings source.
func (t *Telegram) OnInit(_ context.Context, engine interface{}) error {
	if src, ok := engine.(SettingsSource); ok {
		t.source = src
	}
	return nil
}

// OnDepositCreated announces a new pending deposit.
func (t *Telegram) OnDepositCreated(ctx context.Context, dep interface{}) error {
	d, ok := dep.(*deposit.Deposit)
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("🔔 Deposit requested\nOrder: %s\nAmount: %s",
		d.OrderID, types.VND(d.Amount))
	return t.send(ctx, msg)
}

// OnDepositSettled announces a credited deposit.
func (t *Telegram) OnDepositSettled(ctx context.Context, dep interface{}) error {
	d, ok := dep.(*deposit.Deposit)
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("✅ Deposit settled\nOrder: %s\nCredited: %s",
		d.OrderID, types.VND(d.ActualAmount))
	return t.send(ctx, msg)
}

// OnAmountMismatch warns about a transfer that differs from its deposit.
func (t *Telegram) OnAmountMismatch(ctx context.Context, orderID string, requested, received int64) error {
	msg := fmt.Sprintf("⚠️ Amount mismatch\nOrder: %s\nRequested: %s\nReceived: %s",
		orderID, types.VND(requested), types.VND(received))
	return t.send(ctx, msg)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if t.source == nil {
		return nil
	}
	cfg, err := t.source.TelegramSettings(ctx)
	if err != nil {
		return err
	}
	if !cfg.Configured() {
		return nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": cfg.ChatID,
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", cfg.BotToken))
	if err != nil {
		return fmt.Errorf("notify: send telegram message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: telegram api returned %s", resp.Status())
	}

	t.logger.Debug("telegram notification sent", "status", resp.StatusCode())
	return nil
}

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Telegram)(nil)
	_ plugin.OnInit           = (*Telegram)(nil)
	_ plugin.OnDepositCreated = (*Telegram)(nil)
	_ plugin.OnDepositSettled = (*Telegram)(nil)
	_ plugin.OnAmountMismatch = (*Telegram)(nil)
)
