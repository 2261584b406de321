package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ubudget/service-ledger-go/internal/account/entity"
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
// Prefer migrations in production; this keeps early development friction low.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  account_number TEXT NOT NULL UNIQUE,
  account_name TEXT NOT NULL,
  account_type TEXT NOT NULL DEFAULT 'OTHER',
  currency CHAR(3) NOT NULL DEFAULT 'COP',
  cached_balance NUMERIC(20,4) NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_user_type ON accounts(user_id, account_type);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account row. Returns the new internal ID.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	const q = `INSERT INTO accounts (user_id, account_number, account_name, account_type, currency, cached_balance, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &a.ID, q,
		a.UserID, a.Number, a.Name, a.Type, a.Currency, a.CachedBalance, a.IsActive); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// GetByNumber fetches an account by its external number, active or not.
func (r *AccountRepo) GetByNumber(ctx context.Context, number string) (*entity.Account, error) {
	const q = `SELECT id, user_id, account_number, account_name, account_type, currency, cached_balance, is_active, created_at
		FROM accounts WHERE account_number = $1`
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, number); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByUser returns the user's active accounts, newest first.
func (r *AccountRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Account, error) {
	const q = `SELECT id, user_id, account_number, account_name, account_type, currency, cached_balance, is_active, created_at
		FROM accounts WHERE user_id = $1 AND is_active = true ORDER BY created_at DESC`
	var rows []*entity.Account
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByUser returns the number of active accounts a user holds.
func (r *AccountRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM accounts WHERE user_id = $1 AND is_active = true`
	var n int
	if err := r.db.GetContext(ctx, &n, q, userID); err != nil {
		return 0, err
	}
	return n, nil
}

// Deactivate soft-deletes an account owned by the given user. Rows are never
// physically removed so transaction history stays intact.
func (r *AccountRepo) Deactivate(ctx context.Context, userID int64, number string) (bool, error) {
	const q = `UPDATE accounts SET is_active = false
		WHERE user_id = $1 AND account_number = $2 AND is_active = true RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, userID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
