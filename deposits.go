package napstore

import (
	"context"
	"errors"
	"time"

	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/types"
)

// ──────────────────────────────────────────────────
// Deposit Lifecycle
// ──────────────────────────────────────────────────

// CreateDeposit opens a pending top-up request and assigns it a
// transfer reference the customer must put in the wire content.
func (e *Engine) CreateDeposit(ctx context.Context, userID id.UserID, amount int64) (*deposit.Deposit, error) {
	if err := e.allow(ctx, userID, ActionCreateDeposit); err != nil {
		return nil, err
	}
	if amount < deposit.MinimumAmount {
		return nil, ErrAmountBelowMinimum
	}

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := e.store.CountPendingDeposits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending >= deposit.MaxPending {
		return nil, ErrTooManyPending
	}

	d := &deposit.Deposit{
		Entity:  types.NewEntity(),
		ID:      id.NewDepositID(),
		UserID:  u.ID,
		Status:  deposit.StatusPending,
		Amount:  amount,
		OrderID: deposit.NewOrderID(),
	}

	// Timestamp-prefixed references collide only when two requests land
	// in the same millisecond with the same random suffix; one retry is
	// plenty.
	if err := e.store.CreateDeposit(ctx, d); err != nil {
		if !errors.Is(err, ErrOrderIDTaken) {
			return nil, err
		}
		d.OrderID = deposit.NewOrderID()
		if err := e.store.CreateDeposit(ctx, d); err != nil {
			return nil, err
		}
	}

	e.plugins.EmitDepositCreated(ctx, d)

	e.logger.Info("deposit created",
		"deposit_id", d.ID.String(),
		"user_id", u.ID.String(),
		"order_id", d.OrderID,
		"amount", d.Amount,
	)
	return d, nil
}

// GetDeposit retrieves a deposit by ID.
func (e *Engine) GetDeposit(ctx context.Context, depositID id.DepositID) (*deposit.Deposit, error) {
	return e.store.GetDeposit(ctx, depositID)
}

// ListDeposits lists deposits.
func (e *Engine) ListDeposits(ctx context.Context, opts deposit.ListOpts) ([]*deposit.Deposit, error) {
	return e.store.ListDeposits(ctx, opts)
}

// DepositQR builds the hosted QR image URL for a pending deposit using
// the configured receiving account.
func (e *Engine) DepositQR(ctx context.Context, depositID id.DepositID) (string, error) {
	d, err := e.store.GetDeposit(ctx, depositID)
	if err != nil {
		return "", err
	}
	bank, err := e.store.GetBankSettings(ctx)
	if err != nil {
		return "", err
	}
	if !bank.Configured() {
		return "", &ValidationError{Field: "bank", Message: "receiving account is not configured"}
	}
	return deposit.QRURL(bank.Bank, bank.AccountNumber, bank.QRTemplate, bank.AccountName, d.Amount, d.OrderID), nil
}

// ReconcileOutcome classifies what a webhook delivery did.
type ReconcileOutcome string

const (
	// OutcomeSettled means a pending deposit was credited.
	OutcomeSettled ReconcileOutcome = "settled"
	// OutcomeIgnoredOutgoing means the transfer was not incoming money.
	OutcomeIgnoredOutgoing ReconcileOutcome = "ignored_outgoing"
	// OutcomeNoOrderID means no transfer reference could be extracted.
	OutcomeNoOrderID ReconcileOutcome = "no_order_id"
	// OutcomeUnmatched means the reference matched no deposit.
	OutcomeUnmatched ReconcileOutcome = "unmatched"
	// OutcomeAlreadyProcessed means the deposit was settled or rejected
	// before this delivery. Redeliveries land here.
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
)

// ReconcileResult reports how a bank notification was handled.
type ReconcileResult struct {
	Outcome  ReconcileOutcome `json:"outcome"`
	OrderID  string           `json:"order_id,omitempty"`
	Received int64            `json:"received,omitempty"`
	Deposit  *deposit.Deposit `json:"deposit,omitempty"`
}

// Reconcile matches an incoming bank transfer notification against
// pending deposits and credits the owner. Business no-ops (outgoing
// transfers, unknown references, redeliveries) return a result with a
// nil error so the gateway is not told to retry; only storage failures
// are errors.
func (e *Engine) Reconcile(ctx context.Context, n *deposit.Notification) (*ReconcileResult, error) {
	if !n.IsIncoming() {
		return &ReconcileResult{Outcome: OutcomeIgnoredOutgoing}, nil
	}

	orderID, ok := n.OrderID()
	if !ok {
		e.logger.Warn("transfer carries no order id",
			"reference", n.ReferenceCode,
			"amount", n.TransferAmount,
		)
		return &ReconcileResult{Outcome: OutcomeNoOrderID, Received: n.TransferAmount}, nil
	}

	d, err := e.store.GetDepositByOrderID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			e.logger.Warn("transfer matched no deposit",
				"order_id", orderID,
				"amount", n.TransferAmount,
			)
			return &ReconcileResult{Outcome: OutcomeUnmatched, OrderID: orderID, Received: n.TransferAmount}, nil
		}
		return nil, err
	}

	received := n.TransferAmount
	if diff := received - d.Amount; diff > deposit.AmountTolerance || diff < -deposit.AmountTolerance {
		// Credit what actually arrived, but flag the gap for the admin
		// console.
		e.logger.Warn("transfer amount differs from deposit",
			"order_id", orderID,
			"requested", d.Amount,
			"received", received,
		)
		e.plugins.EmitAmountMismatch(ctx, orderID, d.Amount, received)
	}

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      d.UserID,
		Type:        txn.TypeDeposit,
		Amount:      received,
		Description: "Bank transfer " + orderID,
		DepositID:   d.ID,
		At:          time.Now().UTC(),
	}

	settled, err := e.store.SettleDeposit(ctx, d.ID, received, n.Raw(), entry)
	if err != nil {
		if errors.Is(err, ErrDepositNotPending) {
			return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, OrderID: orderID, Received: received, Deposit: d}, nil
		}
		return nil, err
	}

	e.plugins.EmitDepositSettled(ctx, settled)

	e.logger.Info("deposit settled",
		"deposit_id", settled.ID.String(),
		"user_id", settled.UserID.String(),
		"order_id", orderID,
		"received", received,
	)
	return &ReconcileResult{Outcome: OutcomeSettled, OrderID: orderID, Received: received, Deposit: settled}, nil
}

// ConfirmDeposit settles a pending deposit by hand, admin only. The
// requested amount is credited as if the transfer had arrived.
func (e *Engine) ConfirmDeposit(ctx context.Context, actorID id.UserID, depositID id.DepositID) (*deposit.Deposit, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	d, err := e.store.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, err
	}

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      d.UserID,
		Type:        txn.TypeDeposit,
		Amount:      d.Amount,
		Description: "Manual confirmation " + d.OrderID,
		DepositID:   d.ID,
		At:          time.Now().UTC(),
	}

	settled, err := e.store.SettleDeposit(ctx, d.ID, d.Amount, nil, entry)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitDepositSettled(ctx, settled)

	e.logger.Info("deposit confirmed manually",
		"deposit_id", settled.ID.String(),
		"actor_id", actorID.String(),
	)
	return settled, nil
}

// RejectDeposit marks a pending deposit rejected, admin only. No money
// moves.
func (e *Engine) RejectDeposit(ctx context.Context, actorID id.UserID, depositID id.DepositID) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	d, err := e.store.GetDeposit(ctx, depositID)
	if err != nil {
		return err
	}
	if !d.IsPending() {
		return ErrDepositNotPending
	}

	now := time.Now().UTC()
	d.Status = deposit.StatusRejected
	d.RejectedAt = &now
	d.Touch()

	if err := e.store.UpdateDeposit(ctx, d); err != nil {
		return err
	}

	e.plugins.EmitDepositRejected(ctx, d)

	e.logger.Info("deposit rejected",
		"deposit_id", d.ID.String(),
		"actor_id", actorID.String(),
	)
	return nil
}
