package napstore

import (
	"context"
	"strings"
	"time"

	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/txn"
	"github.com/phamhp/napstore/types"
	"github.com/phamhp/napstore/user"
)

// ──────────────────────────────────────────────────
// User Management
// ──────────────────────────────────────────────────

// CreateUser registers a new user with a zero balance.
func (e *Engine) CreateUser(ctx context.Context, email, displayName string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	u := &user.User{
		Entity:      types.NewEntity(),
		ID:          id.NewUserID(),
		Email:       email,
		DisplayName: displayName,
		Role:        user.RoleUser,
	}

	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return e.store.GetUser(ctx, userID)
}

// GetUserByEmail retrieves a user by email.
func (e *Engine) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return e.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers lists users, admin only.
func (e *Engine) ListUsers(ctx context.Context, actorID id.UserID, opts user.ListOpts) ([]*user.User, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return e.store.ListUsers(ctx, opts)
}

// Balance returns the user's current balance.
func (e *Engine) Balance(ctx context.Context, userID id.UserID) (types.Money, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}
	return u.BalanceMoney(), nil
}

// SetUserRole changes a user's role, admin only.
func (e *Engine) SetUserRole(ctx context.Context, actorID, userID id.UserID, role user.Role) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if role != user.RoleUser && role != user.RoleAdmin {
		return &ValidationError{Field: "role", Message: "unknown role"}
	}

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	u.Role = role
	u.Touch()
	return e.store.UpdateUser(ctx, u)
}

// DeleteUser removes a user, admin only. The user's ledger entries are
// kept for audit.
func (e *Engine) DeleteUser(ctx context.Context, actorID, userID id.UserID) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return e.store.DeleteUser(ctx, userID)
}

// AdjustBalance applies a signed manual balance correction, admin only.
// The delta and its ledger entry land atomically.
func (e *Engine) AdjustBalance(ctx context.Context, actorID, userID id.UserID, delta int64, reason string) error {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if delta == 0 {
		return &ValidationError{Field: "delta", Message: "must be non-zero"}
	}

	entry := &txn.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		UserID:      userID,
		Type:        txn.TypeAdminAdjustment,
		Amount:      delta,
		Description: reason,
		At:          time.Now().UTC(),
	}

	if err := e.store.AdjustBalance(ctx, userID, delta, entry); err != nil {
		return err
	}

	e.logger.Info("balance adjusted",
		"user_id", userID.String(),
		"delta", delta,
		"actor_id", actorID.String(),
	)
	return nil
}

// Transactions lists ledger entries.
func (e *Engine) Transactions(ctx context.Context, opts txn.ListOpts) ([]*txn.Transaction, error) {
	return e.store.ListTransactions(ctx, opts)
}

// requireAdmin resolves the actor and rejects non-admins.
func (e *Engine) requireAdmin(ctx context.Context, actorID id.UserID) error {
	actor, err := e.store.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}
