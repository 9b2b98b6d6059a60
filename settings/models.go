// Package settings holds operator-editable storefront configuration:
// the receiving bank account for deposits and the Telegram channel for
// admin notifications. Values live in the store so they can change
// without a redeploy.
package settings

type Bank struct {
	Bank          string `json:"bank"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	QRTemplate    string `json:"qr_template,omitempty"`
}

// Configured reports whether the account can receive deposits.
func (b Bank) Configured() bool {
	return b.Bank != "" && b.AccountNumber != ""
}

type Telegram struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
	Enabled  bool   `json:"enabled"`
}

// Configured reports whether notifications can be delivered.
func (t Telegram) Configured() bool {
	return t.Enabled && t.BotToken != "" && t.ChatID != ""
}

// Software describes the downloadable client build advertised to
// customers.
type Software struct {
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	Changelog   string `json:"changelog,omitempty"`
}
