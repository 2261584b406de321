package repo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	accentity "github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/ledger"
	"github.com/ubudget/service-ledger-go/internal/ledger/entity"
)

// SQLStore is the Postgres-backed ledger store. WithinTx wraps a database
// transaction and LockAccount takes row locks with SELECT ... FOR UPDATE,
// which is what makes the pipeline safe under concurrent submissions.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

var _ ledger.Store = (*SQLStore)(nil)

// EnsureTables creates the categories and transactions tables (idempotent).
func (s *SQLStore) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS categories (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  category_type TEXT NOT NULL DEFAULT 'OTHER',
  description TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
  id BIGSERIAL PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  related_account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
  category_id BIGINT NOT NULL REFERENCES categories(id),
  transaction_type TEXT NOT NULL,
  amount NUMERIC(20,4) NOT NULL,
  currency CHAR(3) NOT NULL DEFAULT 'USD',
  description TEXT NOT NULL DEFAULT '',
  reference TEXT NOT NULL UNIQUE,
  occurred_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  is_reconciled BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_transactions_account_occurred ON transactions(account_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_transactions_type_occurred ON transactions(transaction_type, occurred_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// UserExists checks the referenced user. The reference is the decimal user
// id carried through the input tuple; a non-numeric reference matches
// nobody.
func (s *SQLStore) UserExists(ctx context.Context, userRef string) (bool, error) {
	id, err := strconv.ParseInt(userRef, 10, 64)
	if err != nil {
		return false, nil
	}
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active = true)`
	var found bool
	if err := s.db.GetContext(ctx, &found, q, id); err != nil {
		return false, err
	}
	return found, nil
}

const accountColumns = `id, user_id, account_number, account_name, account_type, currency, cached_balance, is_active, created_at`

// GetAccount reads an account by external number without locking it.
func (s *SQLStore) GetAccount(ctx context.Context, number string) (*accentity.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	var row accentity.Account
	if err := s.db.GetContext(ctx, &row, q, number); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetCategory reads a category by display name.
func (s *SQLStore) GetCategory(ctx context.Context, name string) (*entity.Category, error) {
	const q = `SELECT id, name, category_type, description, created_at FROM categories WHERE name = $1`
	var row entity.Category
	if err := s.db.GetContext(ctx, &row, q, name); err != nil {
		return nil, err
	}
	return &row, nil
}

// WithinTx runs fn inside one database transaction and commits only when
// fn returns nil.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	dbtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqlTx{tx: dbtx}); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

// LockAccount reads the account row under FOR UPDATE. The lock is held
// until the enclosing transaction commits or rolls back.
func (t *sqlTx) LockAccount(ctx context.Context, number string) (*accentity.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`
	var row accentity.Account
	if err := t.tx.GetContext(ctx, &row, q, number); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindOrCreateCategory upserts by display name; the unique index on name
// makes concurrent first uses converge on a single row.
func (t *sqlTx) FindOrCreateCategory(ctx context.Context, name string, ctype entity.CategoryType) (*entity.Category, error) {
	const q = `INSERT INTO categories (name, category_type, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, category_type, description, created_at`
	var row entity.Category
	if err := t.tx.GetContext(ctx, &row, q, name, ctype, "created automatically during transaction"); err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertTransaction persists the immutable transaction row.
func (t *sqlTx) InsertTransaction(ctx context.Context, tr *entity.Transaction) error {
	const q = `INSERT INTO transactions
		(account_id, related_account_id, category_id, transaction_type, amount, currency, description, reference, occurred_at, is_reconciled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	return t.tx.GetContext(ctx, &tr.ID, q,
		tr.AccountID, tr.RelatedAccountID, tr.CategoryID, tr.Type, tr.Amount,
		tr.Currency, tr.Description, tr.Reference, tr.OccurredAt, tr.IsReconciled)
}

// UpdateBalance writes the cached balance computed under the row lock.
func (t *sqlTx) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	const q = `UPDATE accounts SET cached_balance = $2 WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, q, accountID, balance)
	return err
}

// ListByAccount returns the newest transactions against an account.
func (s *SQLStore) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*entity.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, account_id, related_account_id, category_id, transaction_type, amount, currency, description, reference, occurred_at, created_at, is_reconciled
		FROM transactions WHERE account_id = $1 OR related_account_id = $1
		ORDER BY occurred_at DESC LIMIT $2`
	var rows []*entity.Transaction
	if err := s.db.SelectContext(ctx, &rows, q, accountID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
