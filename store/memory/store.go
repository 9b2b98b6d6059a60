package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/settings"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/usagelog"
	"github.com/phamhp/napstore/user"
)

type Store struct {
	mu sync.RWMutex

	// User storage
	users map[string]*user.User

	// Deposit storage; ordersByID enforces order reference uniqueness
	// the way the document store's unique index does.
	deposits   map[string]*deposit.Deposit
	ordersByID map[string]string // order id -> deposit id

	// License storage
	licenses map[string]*license.License

	// Transaction storage
	transactions []*txn.Transaction

	// Usage storage
	usageEvents []*usagelog.Event

	// Settings storage
	bank     settings.Bank
	telegram settings.Telegram
	software settings.Software

	// Catalog storage
	products map[string]*catalog.Product
}

func New() *Store {
	return &Store{
		users:        make(map[string]*user.User),
		deposits:     make(map[string]*deposit.Deposit),
		ordersByID:   make(map[string]string),
		licenses:     make(map[string]*license.License),
		transactions: make([]*txn.Transaction, 0),
		usageEvents:  make([]*usagelog.Event, 0),
		products:     make(map[string]*catalog.Product),
	}
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return napstore.ErrUserExists
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return napstore.ErrUserExists
		}
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID.String()]; ok {
		return u, nil
	}
	return nil, napstore.ErrUserNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, napstore.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context, opts user.ListOpts) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*user.User, 0)
	for _, u := range s.users {
		if opts.Role == "" || u.Role == opts.Role {
			result = append(result, u)
		}
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; !exists {
		return napstore.ErrUserNotFound
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID.String())
	return nil
}

func (s *Store) IncrementBalance(_ context.Context, userID id.UserID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID.String()]
	if !ok {
		return napstore.ErrUserNotFound
	}
	u.Balance += delta
	u.Touch()
	return nil
}

// Deposit Store implementation
func (s *Store) CreateDeposit(_ context.Context, d *deposit.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.deposits[d.ID.String()]; exists {
		return napstore.ErrAlreadyExists
	}
	if _, taken := s.ordersByID[d.OrderID]; taken {
		return napstore.ErrOrderIDTaken
	}
	s.deposits[d.ID.String()] = d
	s.ordersByID[d.OrderID] = d.ID.String()
	return nil
}

func (s *Store) GetDeposit(_ context.Context, depositID id.DepositID) (*deposit.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.deposits[depositID.String()]; ok {
		return d, nil
	}
	return nil, napstore.ErrDepositNotFound
}

func (s *Store) GetDepositByOrderID(_ context.Context, orderID string) (*deposit.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if depID, ok := s.ordersByID[orderID]; ok {
		if d, ok := s.deposits[depID]; ok {
			return d, nil
		}
	}
	return nil, napstore.ErrDepositNotFound
}

func (s *Store) ListDeposits(_ context.Context, opts deposit.ListOpts) ([]*deposit.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*deposit.Deposit, 0)
	for _, d := range s.deposits {
		if !opts.UserID.IsNil() && d.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && d.Status != opts.Status {
			continue
		}
		result = append(result, d)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountPendingDeposits(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, d := range s.deposits {
		if d.UserID == userID && d.Status == deposit.StatusPending {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateDeposit(_ context.Context, d *deposit.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.deposits[d.ID.String()]; !exists {
		return napstore.ErrDepositNotFound
	}
	s.deposits[d.ID.String()] = d
	return nil
}

// License Store implementation
func (s *Store) CreateLicense(_ context.Context, l *license.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.licenses[l.ID.String()]; exists {
		return napstore.ErrAlreadyExists
	}
	s.licenses[l.ID.String()] = l
	return nil
}

func (s *Store) GetLicense(_ context.Context, licenseID id.LicenseID) (*license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.licenses[licenseID.String()]; ok {
		return l, nil
	}
	return nil, napstore.ErrLicenseNotFound
}

func (s *Store) GetLicenseByKey(_ context.Context, key string) (*license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.licenses {
		if l.Key == key {
			return l, nil
		}
	}
	return nil, napstore.ErrLicenseNotFound
}

func (s *Store) ListLicenses(_ context.Context, opts license.ListOpts) ([]*license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*license.License, 0)
	for _, l := range s.licenses {
		if !opts.UserID.IsNil() && l.UserID != opts.UserID {
			continue
		}
		if opts.Product != "" && l.Product != opts.Product {
			continue
		}
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		result = append(result, l)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateLicense(_ context.Context, l *license.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.licenses[l.ID.String()]; !exists {
		return napstore.ErrLicenseNotFound
	}
	s.licenses[l.ID.String()] = l
	return nil
}

func (s *Store) DeleteLicense(_ context.Context, licenseID id.LicenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.licenses, licenseID.String())
	return nil
}

func (s *Store) FindLicenseByHWID(_ context.Context, hwid string) (*license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.licenses {
		if l.HWID == hwid {
			return l, nil
		}
	}
	return nil, napstore.ErrLicenseNotFound
}

func (s *Store) FindLicensesByHWIDHistory(_ context.Context, hwid string) ([]*license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*license.License, 0)
	for _, l := range s.licenses {
		if l.HistoryContains(hwid) {
			result = append(result, l)
		}
	}
	return result, nil
}

// Transaction Store implementation
func (s *Store) CreateTransaction(_ context.Context, t *txn.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append(s.transactions, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*txn.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.ID == txnID {
			return t, nil
		}
	}
	return nil, napstore.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, opts txn.ListOpts) ([]*txn.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*txn.Transaction, 0)
	for _, t := range s.transactions {
		if !opts.UserID.IsNil() && t.UserID != opts.UserID {
			continue
		}
		if opts.Type != "" && t.Type != opts.Type {
			continue
		}
		if !opts.Since.IsZero() && t.At.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && !t.At.Before(opts.Until) {
			continue
		}
		result = append(result, t)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SumTransactionsByUser(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, t := range s.transactions {
		if t.UserID == userID {
			total += t.Amount
		}
	}
	return total, nil
}

// Atomic composites. The single store mutex gives the memory store the
// all-or-nothing behavior the document store gets from transactions.

func (s *Store) SettleDeposit(_ context.Context, depositID id.DepositID, received int64, raw map[string]any, entry *txn.Transaction) (*deposit.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deposits[depositID.String()]
	if !ok {
		return nil, napstore.ErrDepositNotFound
	}
	if d.Status != deposit.StatusPending {
		return nil, napstore.ErrDepositNotPending
	}

	u, ok := s.users[d.UserID.String()]
	if !ok {
		return nil, napstore.ErrUserNotFound
	}

	now := time.Now().UTC()
	d.Status = deposit.StatusCompleted
	d.ActualAmount = received
	d.CompletedAt = &now
	d.Raw = raw
	d.Touch()

	u.Balance += received
	u.Touch()

	s.transactions = append(s.transactions, entry)
	return d, nil
}

func (s *Store) PurchaseLicense(_ context.Context, userID id.UserID, price int64, l *license.License, entry *txn.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID.String()]
	if !ok {
		return napstore.ErrUserNotFound
	}
	if u.Balance < price {
		return napstore.ErrInsufficientBalance
	}

	u.Balance -= price
	u.Touch()

	s.licenses[l.ID.String()] = l
	s.transactions = append(s.transactions, entry)
	return nil
}

func (s *Store) RenewLicense(_ context.Context, userID id.UserID, fee int64, l *license.License, entry *txn.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID.String()]
	if !ok {
		return napstore.ErrUserNotFound
	}
	if _, exists := s.licenses[l.ID.String()]; !exists {
		return napstore.ErrLicenseNotFound
	}
	if u.Balance < fee {
		return napstore.ErrInsufficientBalance
	}

	u.Balance -= fee
	u.Touch()

	s.licenses[l.ID.String()] = l
	s.transactions = append(s.transactions, entry)
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, userID id.UserID, delta int64, entry *txn.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID.String()]
	if !ok {
		return napstore.ErrUserNotFound
	}

	u.Balance += delta
	u.Touch()

	s.transactions = append(s.transactions, entry)
	return nil
}

// Settings Store implementation
func (s *Store) GetBankSettings(_ context.Context) (settings.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bank, nil
}

func (s *Store) SetBankSettings(_ context.Context, b settings.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bank = b
	return nil
}

func (s *Store) GetTelegramSettings(_ context.Context) (settings.Telegram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.telegram, nil
}

func (s *Store) SetTelegramSettings(_ context.Context, t settings.Telegram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telegram = t
	return nil
}

func (s *Store) GetSoftwareSettings(_ context.Context) (settings.Software, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.software, nil
}

func (s *Store) SetSoftwareSettings(_ context.Context, sw settings.Software) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.software = sw
	return nil
}

// Catalog Store implementation
func (s *Store) GetProduct(_ context.Context, key string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.products[key]; ok {
		return p, nil
	}
	return nil, napstore.ErrProductNotFound
}

func (s *Store) ListProducts(_ context.Context) ([]*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) UpsertProduct(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.Key] = p
	return nil
}

// Usage Store implementation
func (s *Store) InsertUsageBatch(_ context.Context, events []*usagelog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usageEvents = append(s.usageEvents, events...)
	return nil
}

func (s *Store) CountUsageByDate(_ context.Context, date string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.usageEvents {
		if e.Date == date {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountUsageByMonth(_ context.Context, month string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.usageEvents {
		if e.Month == month {
			count++
		}
	}
	return count, nil
}

func (s *Store) DistinctUsageHWIDsByDate(_ context.Context, date string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, e := range s.usageEvents {
		if e.Date == date {
			seen[e.HWID] = true
		}
	}
	return int64(len(seen)), nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
