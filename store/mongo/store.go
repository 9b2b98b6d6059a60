package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/catalog"
	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/settings"
	napstorestore "github.com/phamhp/napstore/store"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/usagelog"
	"github.com/phamhp/napstore/user"
)

// Collection name constants.
const (
	colUsers        = "napstore_users"
	colDeposits     = "napstore_deposits"
	colLicenses     = "napstore_licenses"
	colTransactions = "napstore_transactions"
	colSettings     = "napstore_settings"
	colProducts     = "napstore_products"
	colUsageEvents  = "napstore_usage_events"
)

// compile-time interface check
var _ napstorestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all napstore collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("napstore/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return napstore.ErrUserExists
		}
		return fmt.Errorf("napstore/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"email": email}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrUserNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get user by email: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	var models []userModel

	filter := bson.M{}
	if opts.Role != "" {
		filter["role"] = string(opts.Role)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("napstore/mongo: list users: %w", err)
	}

	result := make([]*user.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: update user: %w", err)
	}
	if res.MatchedCount() == 0 {
		return napstore.ErrUserNotFound
	}
	return nil
}

func (s *Store) IncrementBalance(ctx context.Context, userID id.UserID, delta int64) error {
	res, err := s.mdb.NewUpdate((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		SetUpdate(bson.M{
			"$inc": bson.M{"balance": delta},
			"$set": bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: increment balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		return napstore.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: delete user: %w", err)
	}
	return nil
}

// ==================== Deposit Store ====================

func (s *Store) CreateDeposit(ctx context.Context, d *deposit.Deposit) error {
	m := toDepositModel(d)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// Unique index on order_id.
		if mongo.IsDuplicateKeyError(err) {
			return napstore.ErrOrderIDTaken
		}
		return fmt.Errorf("napstore/mongo: create deposit: %w", err)
	}
	return nil
}

func (s *Store) GetDeposit(ctx context.Context, depositID id.DepositID) (*deposit.Deposit, error) {
	var m depositModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": depositID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrDepositNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get deposit: %w", err)
	}
	return fromDepositModel(&m)
}

func (s *Store) GetDepositByOrderID(ctx context.Context, orderID string) (*deposit.Deposit, error) {
	var m depositModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"order_id": orderID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrDepositNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get deposit by order id: %w", err)
	}
	return fromDepositModel(&m)
}

func (s *Store) ListDeposits(ctx context.Context, opts deposit.ListOpts) ([]*deposit.Deposit, error) {
	var models []depositModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("napstore/mongo: list deposits: %w", err)
	}

	result := make([]*deposit.Deposit, len(models))
	for i := range models {
		d, err := fromDepositModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *Store) CountPendingDeposits(ctx context.Context, userID id.UserID) (int, error) {
	count, err := s.mdb.Collection(colDeposits).CountDocuments(ctx, bson.M{
		"user_id": userID.String(),
		"status":  string(deposit.StatusPending),
	})
	if err != nil {
		return 0, fmt.Errorf("napstore/mongo: count pending deposits: %w", err)
	}
	return int(count), nil
}

func (s *Store) UpdateDeposit(ctx context.Context, d *deposit.Deposit) error {
	m := toDepositModel(d)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: update deposit: %w", err)
	}
	if res.MatchedCount() == 0 {
		return napstore.ErrDepositNotFound
	}
	return nil
}

// ==================== License Store ====================

func (s *Store) CreateLicense(ctx context.Context, l *license.License) error {
	m := toLicenseModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return napstore.ErrAlreadyExists
		}
		return fmt.Errorf("napstore/mongo: create license: %w", err)
	}
	return nil
}

func (s *Store) GetLicense(ctx context.Context, licenseID id.LicenseID) (*license.License, error) {
	var m licenseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": licenseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get license: %w", err)
	}
	return fromLicenseModel(&m)
}

func (s *Store) GetLicenseByKey(ctx context.Context, key string) (*license.License, error) {
	var m licenseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"key": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get license by key: %w", err)
	}
	return fromLicenseModel(&m)
}

func (s *Store) ListLicenses(ctx context.Context, opts license.ListOpts) ([]*license.License, error) {
	var models []licenseModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Product != "" {
		filter["product"] = opts.Product
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("napstore/mongo: list licenses: %w", err)
	}

	result := make([]*license.License, len(models))
	for i := range models {
		l, err := fromLicenseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) UpdateLicense(ctx context.Context, l *license.License) error {
	m := toLicenseModel(l)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Unique sparse index on hwid.
			return napstore.ErrHWIDInUse
		}
		return fmt.Errorf("napstore/mongo: update license: %w", err)
	}
	if res.MatchedCount() == 0 {
		return napstore.ErrLicenseNotFound
	}
	return nil
}

func (s *Store) DeleteLicense(ctx context.Context, licenseID id.LicenseID) error {
	res, err := s.mdb.NewDelete((*licenseModel)(nil)).
		Filter(bson.M{"_id": licenseID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: delete license: %w", err)
	}
	if res.DeletedCount() == 0 {
		return napstore.ErrLicenseNotFound
	}
	return nil
}

func (s *Store) FindLicenseByHWID(ctx context.Context, hwid string) (*license.License, error) {
	var m licenseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"hwid": hwid}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: find license by hwid: %w", err)
	}
	return fromLicenseModel(&m)
}

func (s *Store) FindLicensesByHWIDHistory(ctx context.Context, hwid string) ([]*license.License, error) {
	var models []licenseModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{"hwid_history": hwid}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("napstore/mongo: find licenses by hwid history: %w", err)
	}

	result := make([]*license.License, len(models))
	for i := range models {
		l, err := fromLicenseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, t *txn.Transaction) error {
	m := toTransactionModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*txn.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txnID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, opts txn.ListOpts) ([]*txn.Transaction, error) {
	var models []transactionModel

	filter := bson.M{}
	if !opts.UserID.IsNil() {
		filter["user_id"] = opts.UserID.String()
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if !opts.Since.IsZero() || !opts.Until.IsZero() {
		at := bson.M{}
		if !opts.Since.IsZero() {
			at["$gte"] = opts.Since
		}
		if !opts.Until.IsZero() {
			at["$lt"] = opts.Until
		}
		filter["at"] = at
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("napstore/mongo: list transactions: %w", err)
	}

	result := make([]*txn.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) SumTransactionsByUser(ctx context.Context, userID id.UserID) (int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"user_id": userID.String()}},
		bson.M{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}},
	}

	cursor, err := s.mdb.Collection(colTransactions).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("napstore/mongo: sum transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("napstore/mongo: sum transactions decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Atomic composites ====================

// The mongo driver propagates the session through ctx, so grove query
// builders participate in the transaction started by withTxn.

func (s *Store) withTxn(ctx context.Context, fn func(ctx context.Context) error) error {
	client := s.mdb.Collection(colUsers).Database().Client()

	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("napstore/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *Store) SettleDeposit(ctx context.Context, depositID id.DepositID, received int64, raw map[string]any, entry *txn.Transaction) (*deposit.Deposit, error) {
	var settled *deposit.Deposit

	err := s.withTxn(ctx, func(ctx context.Context) error {
		var m depositModel
		findErr := s.mdb.NewFind(&m).
			Filter(bson.M{"_id": depositID.String()}).
			Scan(ctx)
		if findErr != nil {
			if isNoDocuments(findErr) {
				return napstore.ErrDepositNotFound
			}
			return fmt.Errorf("napstore/mongo: settle deposit find: %w", findErr)
		}
		if m.Status != string(deposit.StatusPending) {
			return napstore.ErrDepositNotPending
		}

		t := now()

		// Compare-and-set on the pending status: a replayed webhook
		// racing past the read above still cannot settle twice.
		res, updErr := s.mdb.NewUpdate((*depositModel)(nil)).
			Filter(bson.M{"_id": depositID.String(), "status": string(deposit.StatusPending)}).
			Set("status", string(deposit.StatusCompleted)).
			Set("actual_amount", received).
			Set("completed_at", t).
			Set("raw", raw).
			Set("updated_at", t).
			Exec(ctx)
		if updErr != nil {
			return fmt.Errorf("napstore/mongo: settle deposit update: %w", updErr)
		}
		if res.MatchedCount() == 0 {
			return napstore.ErrDepositNotPending
		}

		credRes, credErr := s.mdb.NewUpdate((*userModel)(nil)).
			Filter(bson.M{"_id": m.UserID}).
			SetUpdate(bson.M{
				"$inc": bson.M{"balance": received},
				"$set": bson.M{"updated_at": t},
			}).
			Exec(ctx)
		if credErr != nil {
			return fmt.Errorf("napstore/mongo: settle deposit credit: %w", credErr)
		}
		if credRes.MatchedCount() == 0 {
			return napstore.ErrUserNotFound
		}

		if _, insErr := s.mdb.NewInsert(toTransactionModel(entry)).Exec(ctx); insErr != nil {
			return fmt.Errorf("napstore/mongo: settle deposit ledger entry: %w", insErr)
		}

		m.Status = string(deposit.StatusCompleted)
		m.ActualAmount = received
		m.CompletedAt = &t
		m.Raw = raw
		m.UpdatedAt = t

		d, convErr := fromDepositModel(&m)
		if convErr != nil {
			return convErr
		}
		settled = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (s *Store) PurchaseLicense(ctx context.Context, userID id.UserID, price int64, l *license.License, entry *txn.Transaction) error {
	return s.withTxn(ctx, func(ctx context.Context) error {
		t := now()

		// Conditional debit: the balance check and the decrement are
		// one filtered update, so two concurrent purchases cannot
		// both spend the same balance.
		res, err := s.mdb.NewUpdate((*userModel)(nil)).
			Filter(bson.M{"_id": userID.String(), "balance": bson.M{"$gte": price}}).
			SetUpdate(bson.M{
				"$inc": bson.M{"balance": -price},
				"$set": bson.M{"updated_at": t},
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("napstore/mongo: purchase debit: %w", err)
		}
		if res.MatchedCount() == 0 {
			if _, getErr := s.GetUser(ctx, userID); getErr != nil {
				return getErr
			}
			return napstore.ErrInsufficientBalance
		}

		if _, err := s.mdb.NewInsert(toLicenseModel(l)).Exec(ctx); err != nil {
			return fmt.Errorf("napstore/mongo: purchase license insert: %w", err)
		}
		if _, err := s.mdb.NewInsert(toTransactionModel(entry)).Exec(ctx); err != nil {
			return fmt.Errorf("napstore/mongo: purchase ledger entry: %w", err)
		}
		return nil
	})
}

func (s *Store) RenewLicense(ctx context.Context, userID id.UserID, fee int64, l *license.License, entry *txn.Transaction) error {
	return s.withTxn(ctx, func(ctx context.Context) error {
		t := now()

		res, err := s.mdb.NewUpdate((*userModel)(nil)).
			Filter(bson.M{"_id": userID.String(), "balance": bson.M{"$gte": fee}}).
			SetUpdate(bson.M{
				"$inc": bson.M{"balance": -fee},
				"$set": bson.M{"updated_at": t},
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("napstore/mongo: renew debit: %w", err)
		}
		if res.MatchedCount() == 0 {
			if _, getErr := s.GetUser(ctx, userID); getErr != nil {
				return getErr
			}
			return napstore.ErrInsufficientBalance
		}

		m := toLicenseModel(l)
		m.UpdatedAt = t
		updRes, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ID}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("napstore/mongo: renew license update: %w", err)
		}
		if updRes.MatchedCount() == 0 {
			return napstore.ErrLicenseNotFound
		}

		if _, err := s.mdb.NewInsert(toTransactionModel(entry)).Exec(ctx); err != nil {
			return fmt.Errorf("napstore/mongo: renew ledger entry: %w", err)
		}
		return nil
	})
}

func (s *Store) AdjustBalance(ctx context.Context, userID id.UserID, delta int64, entry *txn.Transaction) error {
	return s.withTxn(ctx, func(ctx context.Context) error {
		t := now()

		res, err := s.mdb.NewUpdate((*userModel)(nil)).
			Filter(bson.M{"_id": userID.String()}).
			SetUpdate(bson.M{
				"$inc": bson.M{"balance": delta},
				"$set": bson.M{"updated_at": t},
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("napstore/mongo: adjust balance: %w", err)
		}
		if res.MatchedCount() == 0 {
			return napstore.ErrUserNotFound
		}

		if _, err := s.mdb.NewInsert(toTransactionModel(entry)).Exec(ctx); err != nil {
			return fmt.Errorf("napstore/mongo: adjust ledger entry: %w", err)
		}
		return nil
	})
}

// ==================== Settings Store ====================

func (s *Store) GetBankSettings(ctx context.Context) (settings.Bank, error) {
	var m settingsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": settingsBankDoc}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return settings.Bank{}, nil
		}
		return settings.Bank{}, fmt.Errorf("napstore/mongo: get bank settings: %w", err)
	}
	return fromBankSettingsModel(&m), nil
}

func (s *Store) SetBankSettings(ctx context.Context, b settings.Bank) error {
	m := toBankSettingsModel(b)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":            m.ID,
			"bank":           m.Bank,
			"account_number": m.AccountNumber,
			"account_name":   m.AccountName,
			"qr_template":    m.QRTemplate,
			"updated_at":     m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: set bank settings: %w", err)
	}
	return nil
}

func (s *Store) GetTelegramSettings(ctx context.Context) (settings.Telegram, error) {
	var m settingsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": settingsTelegramDoc}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return settings.Telegram{}, nil
		}
		return settings.Telegram{}, fmt.Errorf("napstore/mongo: get telegram settings: %w", err)
	}
	return fromTelegramSettingsModel(&m), nil
}

func (s *Store) SetTelegramSettings(ctx context.Context, t settings.Telegram) error {
	m := toTelegramSettingsModel(t)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.ID,
			"bot_token":  m.BotToken,
			"chat_id":    m.ChatID,
			"enabled":    m.Enabled,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: set telegram settings: %w", err)
	}
	return nil
}

func (s *Store) GetSoftwareSettings(ctx context.Context) (settings.Software, error) {
	var m settingsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": settingsSoftwareDoc}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return settings.Software{}, nil
		}
		return settings.Software{}, fmt.Errorf("napstore/mongo: get software settings: %w", err)
	}
	return fromSoftwareSettingsModel(&m), nil
}

func (s *Store) SetSoftwareSettings(ctx context.Context, sw settings.Software) error {
	m := toSoftwareSettingsModel(sw)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":          m.ID,
			"version":      m.Version,
			"download_url": m.DownloadURL,
			"changelog":    m.Changelog,
			"updated_at":   m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: set software settings: %w", err)
	}
	return nil
}

// ==================== Catalog Store ====================

func (s *Store) GetProduct(ctx context.Context, key string) (*catalog.Product, error) {
	var m productModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, napstore.ErrProductNotFound
		}
		return nil, fmt.Errorf("napstore/mongo: get product: %w", err)
	}
	return fromProductModel(&m), nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	var models []productModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("napstore/mongo: list products: %w", err)
	}

	result := make([]*catalog.Product, len(models))
	for i := range models {
		result[i] = fromProductModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpsertProduct(ctx context.Context, p *catalog.Product) error {
	m := toProductModel(p)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":         m.ID,
			"name":        m.Name,
			"plan_prices": m.PlanPrices,
			"renewals":    m.Renewals,
			"disabled":    m.Disabled,
			"updated_at":  m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("napstore/mongo: upsert product: %w", err)
	}
	return nil
}

// ==================== Usage Store ====================

func (s *Store) InsertUsageBatch(ctx context.Context, events []*usagelog.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		m := toUsageEventModel(e)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates so a retried flush is harmless.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("napstore/mongo: insert usage event: %w", err)
		}
	}
	return nil
}

func (s *Store) CountUsageByDate(ctx context.Context, date string) (int64, error) {
	count, err := s.mdb.Collection(colUsageEvents).CountDocuments(ctx, bson.M{"date": date})
	if err != nil {
		return 0, fmt.Errorf("napstore/mongo: count usage by date: %w", err)
	}
	return count, nil
}

func (s *Store) CountUsageByMonth(ctx context.Context, month string) (int64, error) {
	count, err := s.mdb.Collection(colUsageEvents).CountDocuments(ctx, bson.M{"month": month})
	if err != nil {
		return 0, fmt.Errorf("napstore/mongo: count usage by month: %w", err)
	}
	return count, nil
}

func (s *Store) DistinctUsageHWIDsByDate(ctx context.Context, date string) (int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"date": date}},
		bson.M{"$group": bson.M{"_id": "$hwid"}},
		bson.M{"$count": "total"},
	}

	cursor, err := s.mdb.Collection(colUsageEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("napstore/mongo: distinct usage hwids: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("napstore/mongo: distinct usage hwids decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all napstore collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		colDeposits: {
			{
				Keys:    bson.D{{Key: "order_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colLicenses: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "hwid", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "hwid_history", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "at", Value: -1}}},
		},
		colUsageEvents: {
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "hwid", Value: 1}}},
			{Keys: bson.D{{Key: "month", Value: 1}}},
		},
	}
}
