package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/settings"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/types"
	"github.com/phamhp/napstore/usagelog"
	"github.com/phamhp/napstore/user"
)

// ==================== User models ====================

type userModel struct {
	grove.BaseModel `grove:"table:napstore_users"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	Email       string            `grove:"email"        bson:"email"`
	DisplayName string            `grove:"display_name" bson:"display_name"`
	Role        string            `grove:"role"         bson:"role"`
	Balance     int64             `grove:"balance"      bson:"balance"`
	Disabled    bool              `grove:"disabled"     bson:"disabled"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Balance:     u.Balance,
		Disabled:    u.Disabled,
		Metadata:    u.Metadata,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}

	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          userID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        user.Role(m.Role),
		Balance:     m.Balance,
		Disabled:    m.Disabled,
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Deposit models ====================

type depositModel struct {
	grove.BaseModel `grove:"table:napstore_deposits"`

	ID           string         `grove:"id,pk"         bson:"_id"`
	UserID       string         `grove:"user_id"       bson:"user_id"`
	OrderID      string         `grove:"order_id"      bson:"order_id"`
	Status       string         `grove:"status"        bson:"status"`
	Amount       int64          `grove:"amount"        bson:"amount"`
	ActualAmount int64          `grove:"actual_amount" bson:"actual_amount"`
	CompletedAt  *time.Time     `grove:"completed_at"  bson:"completed_at,omitempty"`
	RejectedAt   *time.Time     `grove:"rejected_at"   bson:"rejected_at,omitempty"`
	Raw          map[string]any `grove:"raw"           bson:"raw,omitempty"`
	CreatedAt    time.Time      `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time      `grove:"updated_at"    bson:"updated_at"`
}

func toDepositModel(d *deposit.Deposit) *depositModel {
	return &depositModel{
		ID:           d.ID.String(),
		UserID:       d.UserID.String(),
		OrderID:      d.OrderID,
		Status:       string(d.Status),
		Amount:       d.Amount,
		ActualAmount: d.ActualAmount,
		CompletedAt:  d.CompletedAt,
		RejectedAt:   d.RejectedAt,
		Raw:          d.Raw,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func fromDepositModel(m *depositModel) (*deposit.Deposit, error) {
	depID, err := id.ParseDepositID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	return &deposit.Deposit{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           depID,
		UserID:       userID,
		OrderID:      m.OrderID,
		Status:       deposit.Status(m.Status),
		Amount:       m.Amount,
		ActualAmount: m.ActualAmount,
		CompletedAt:  m.CompletedAt,
		RejectedAt:   m.RejectedAt,
		Raw:          m.Raw,
	}, nil
}

// ==================== License models ====================

type licenseModel struct {
	grove.BaseModel `grove:"table:napstore_licenses"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	UserID         string     `grove:"user_id"         bson:"user_id"`
	Key            string     `grove:"key"             bson:"key"`
	Product        string     `grove:"product"         bson:"product"`
	Plan           string     `grove:"plan"            bson:"plan"`
	Status         string     `grove:"status"          bson:"status"`
	HWID           string     `grove:"hwid"            bson:"hwid,omitempty"`
	HWIDHistory    []string   `grove:"hwid_history"    bson:"hwid_history,omitempty"`
	ExpiresAt      *time.Time `grove:"expires_at"      bson:"expires_at,omitempty"`
	ActivatedAt    *time.Time `grove:"activated_at"    bson:"activated_at,omitempty"`
	RenewedAt      *time.Time `grove:"renewed_at"      bson:"renewed_at,omitempty"`
	RevokedAt      *time.Time `grove:"revoked_at"      bson:"revoked_at,omitempty"`
	ResetRequested bool       `grove:"reset_requested" bson:"reset_requested"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toLicenseModel(l *license.License) *licenseModel {
	return &licenseModel{
		ID:             l.ID.String(),
		UserID:         l.UserID.String(),
		Key:            l.Key,
		Product:        l.Product,
		Plan:           string(l.Plan),
		Status:         string(l.Status),
		HWID:           l.HWID,
		HWIDHistory:    l.HWIDHistory,
		ExpiresAt:      l.ExpiresAt,
		ActivatedAt:    l.ActivatedAt,
		RenewedAt:      l.RenewedAt,
		RevokedAt:      l.RevokedAt,
		ResetRequested: l.ResetRequested,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func fromLicenseModel(m *licenseModel) (*license.License, error) {
	licID, err := id.ParseLicenseID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	return &license.License{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             licID,
		UserID:         userID,
		Key:            m.Key,
		Product:        m.Product,
		Plan:           license.Plan(m.Plan),
		Status:         license.Status(m.Status),
		HWID:           m.HWID,
		HWIDHistory:    m.HWIDHistory,
		ExpiresAt:      m.ExpiresAt,
		ActivatedAt:    m.ActivatedAt,
		RenewedAt:      m.RenewedAt,
		RevokedAt:      m.RevokedAt,
		ResetRequested: m.ResetRequested,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:napstore_transactions"`

	ID          string    `grove:"id,pk"       bson:"_id"`
	UserID      string    `grove:"user_id"     bson:"user_id"`
	Type        string    `grove:"type"        bson:"type"`
	Amount      int64     `grove:"amount"      bson:"amount"`
	Description string    `grove:"description" bson:"description,omitempty"`
	DepositID   string    `grove:"deposit_id"  bson:"deposit_id,omitempty"`
	LicenseID   string    `grove:"license_id"  bson:"license_id,omitempty"`
	Product     string    `grove:"product"     bson:"product,omitempty"`
	At          time.Time `grove:"at"          bson:"at"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toTransactionModel(t *txn.Transaction) *transactionModel {
	m := &transactionModel{
		ID:          t.ID.String(),
		UserID:      t.UserID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Product:     t.Product,
		At:          t.At,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if !t.DepositID.IsNil() {
		m.DepositID = t.DepositID.String()
	}
	if !t.LicenseID.IsNil() {
		m.LicenseID = t.LicenseID.String()
	}
	return m
}

func fromTransactionModel(m *transactionModel) (*txn.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	t := &txn.Transaction{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          txnID,
		UserID:      userID,
		Type:        txn.Type(m.Type),
		Amount:      m.Amount,
		Description: m.Description,
		Product:     m.Product,
		At:          m.At,
	}
	if m.DepositID != "" {
		depID, depErr := id.ParseDepositID(m.DepositID)
		if depErr != nil {
			return nil, depErr
		}
		t.DepositID = depID
	}
	if m.LicenseID != "" {
		licID, licErr := id.ParseLicenseID(m.LicenseID)
		if licErr != nil {
			return nil, licErr
		}
		t.LicenseID = licID
	}
	return t, nil
}

// ==================== Settings models ====================

// Settings live as two fixed documents keyed by name, matching how
// operators think of them: one bank account, one notification channel.
type settingsModel struct {
	grove.BaseModel `grove:"table:napstore_settings"`

	ID string `grove:"id,pk" bson:"_id"`

	Bank          string `grove:"bank"           bson:"bank,omitempty"`
	AccountNumber string `grove:"account_number" bson:"account_number,omitempty"`
	AccountName   string `grove:"account_name"   bson:"account_name,omitempty"`
	QRTemplate    string `grove:"qr_template"    bson:"qr_template,omitempty"`

	BotToken string `grove:"bot_token" bson:"bot_token,omitempty"`
	ChatID   string `grove:"chat_id"   bson:"chat_id,omitempty"`
	Enabled  bool   `grove:"enabled"   bson:"enabled"`

	Version     string `grove:"version"      bson:"version,omitempty"`
	DownloadURL string `grove:"download_url" bson:"download_url,omitempty"`
	Changelog   string `grove:"changelog"    bson:"changelog,omitempty"`

	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

const (
	settingsBankDoc     = "bank"
	settingsTelegramDoc = "telegram"
	settingsSoftwareDoc = "software"
)

func toBankSettingsModel(b settings.Bank) *settingsModel {
	return &settingsModel{
		ID:            settingsBankDoc,
		Bank:          b.Bank,
		AccountNumber: b.AccountNumber,
		AccountName:   b.AccountName,
		QRTemplate:    b.QRTemplate,
		UpdatedAt:     time.Now().UTC(),
	}
}

func fromBankSettingsModel(m *settingsModel) settings.Bank {
	return settings.Bank{
		Bank:          m.Bank,
		AccountNumber: m.AccountNumber,
		AccountName:   m.AccountName,
		QRTemplate:    m.QRTemplate,
	}
}

func toTelegramSettingsModel(t settings.Telegram) *settingsModel {
	return &settingsModel{
		ID:        settingsTelegramDoc,
		BotToken:  t.BotToken,
		ChatID:    t.ChatID,
		Enabled:   t.Enabled,
		UpdatedAt: time.Now().UTC(),
	}
}

func fromTelegramSettingsModel(m *settingsModel) settings.Telegram {
	return settings.Telegram{
		BotToken: m.BotToken,
		ChatID:   m.ChatID,
		Enabled:  m.Enabled,
	}
}

func toSoftwareSettingsModel(sw settings.Software) *settingsModel {
	return &settingsModel{
		ID:          settingsSoftwareDoc,
		Version:     sw.Version,
		DownloadURL: sw.DownloadURL,
		Changelog:   sw.Changelog,
		UpdatedAt:   time.Now().UTC(),
	}
}

func fromSoftwareSettingsModel(m *settingsModel) settings.Software {
	return settings.Software{
		Version:     m.Version,
		DownloadURL: m.DownloadURL,
		Changelog:   m.Changelog,
	}
}

// ==================== Catalog models ====================

type productModel struct {
	grove.BaseModel `grove:"table:napstore_products"`

	ID         string                  `grove:"id,pk"       bson:"_id"`
	Name       string                  `grove:"name"        bson:"name"`
	PlanPrices map[string]int64        `grove:"plan_prices" bson:"plan_prices"`
	Renewals   map[string]renewalModel `grove:"renewals"    bson:"renewals"`
	Disabled   bool                    `grove:"disabled"    bson:"disabled"`
	UpdatedAt  time.Time               `grove:"updated_at"  bson:"updated_at"`
}

type renewalModel struct {
	Days  int   `bson:"days"`
	Price int64 `bson:"price"`
}

func toProductModel(p *catalog.Product) *productModel {
	prices := make(map[string]int64, len(p.PlanPrices))
	for plan, price := range p.PlanPrices {
		prices[string(plan)] = price
	}
	renewals := make(map[string]renewalModel, len(p.Renewals))
	for key, r := range p.Renewals {
		renewals[key] = renewalModel{Days: r.Days, Price: r.Price}
	}

	return &productModel{
		ID:         p.Key,
		Name:       p.Name,
		PlanPrices: prices,
		Renewals:   renewals,
		Disabled:   p.Disabled,
		UpdatedAt:  time.Now().UTC(),
	}
}

func fromProductModel(m *productModel) *catalog.Product {
	prices := make(map[license.Plan]int64, len(m.PlanPrices))
	for plan, price := range m.PlanPrices {
		prices[license.Plan(plan)] = price
	}
	renewals := make(map[string]catalog.Renewal, len(m.Renewals))
	for key, r := range m.Renewals {
		renewals[key] = catalog.Renewal{Days: r.Days, Price: r.Price}
	}

	return &catalog.Product{
		Key:        m.ID,
		Name:       m.Name,
		PlanPrices: prices,
		Renewals:   renewals,
		Disabled:   m.Disabled,
	}
}

// ==================== Usage Event models ====================

type usageEventModel struct {
	grove.BaseModel `grove:"table:napstore_usage_events"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	LicenseID string    `grove:"license_id" bson:"license_id"`
	UserID    string    `grove:"user_id"    bson:"user_id"`
	Product   string    `grove:"product"    bson:"product"`
	HWID      string    `grove:"hwid"       bson:"hwid"`
	Date      string    `grove:"date"       bson:"date"`
	Month     string    `grove:"month"      bson:"month"`
	At        time.Time `grove:"at"         bson:"at"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toUsageEventModel(e *usagelog.Event) *usageEventModel {
	return &usageEventModel{
		ID:        e.ID.String(),
		LicenseID: e.LicenseID.String(),
		UserID:    e.UserID.String(),
		Product:   e.Product,
		HWID:      e.HWID,
		Date:      e.Date,
		Month:     e.Month,
		At:        e.At,
		CreatedAt: time.Now().UTC(),
	}
}
