package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ubudget/service-ledger-go/internal/obligation/entity"
)

// ObligationRepo provides data access for the obligations table using sqlx.
type ObligationRepo struct {
	db *sqlx.DB
}

func NewObligationRepo(db *sqlx.DB) *ObligationRepo { return &ObligationRepo{db: db} }

// EnsureTable creates the obligations table if not exists (idempotent).
func (r *ObligationRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS obligations (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title VARCHAR(200) NOT NULL,
  amount_total NUMERIC(20,4) NOT NULL,
  amount_remaining NUMERIC(20,4) NOT NULL,
  currency CHAR(3) NOT NULL DEFAULT 'USD',
  due_date TIMESTAMPTZ NOT NULL,
  frequency TEXT NOT NULL DEFAULT 'one_time',
  state TEXT NOT NULL DEFAULT 'open',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_obligations_user_due_state ON obligations(user_id, due_date, state);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// UserExists reports whether an active user row exists.
func (r *ObligationRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active = true)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, userID); err != nil {
		return false, err
	}
	return ok, nil
}

// Create inserts a new obligation row and returns the new ID.
func (r *ObligationRepo) Create(ctx context.Context, o *entity.Obligation) (int64, error) {
	const q = `INSERT INTO obligations (user_id, title, amount_total, amount_remaining, currency, due_date, frequency, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.GetContext(ctx, &o.ID, q,
		o.UserID, o.Title, o.AmountTotal, o.AmountRemaining, o.Currency, o.DueDate, o.Frequency, o.State); err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (r *ObligationRepo) GetByID(ctx context.Context, id int64) (*entity.Obligation, error) {
	const q = `SELECT id, user_id, title, amount_total, amount_remaining, currency, due_date, frequency, state, created_at
		FROM obligations WHERE id = $1`
	var o entity.Obligation
	if err := r.db.GetContext(ctx, &o, q, id); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByTitle finds a user's obligation by its title, newest first when
// titles repeat.
func (r *ObligationRepo) GetByTitle(ctx context.Context, userID int64, title string) (*entity.Obligation, error) {
	const q = `SELECT id, user_id, title, amount_total, amount_remaining, currency, due_date, frequency, state, created_at
		FROM obligations WHERE user_id = $1 AND title = $2 ORDER BY created_at DESC LIMIT 1`
	var o entity.Obligation
	if err := r.db.GetContext(ctx, &o, q, userID, title); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ObligationRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Obligation, error) {
	const q = `SELECT id, user_id, title, amount_total, amount_remaining, currency, due_date, frequency, state, created_at
		FROM obligations WHERE user_id = $1 ORDER BY due_date ASC`
	var rows []*entity.Obligation
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// SetState moves an obligation to a new state. Returns false when the row
// does not exist or belongs to another user.
func (r *ObligationRepo) SetState(ctx context.Context, id, userID int64, state entity.State) (bool, error) {
	const q = `UPDATE obligations SET state = $3 WHERE id = $1 AND user_id = $2 RETURNING 1`
	var one int
	if err := r.db.GetContext(ctx, &one, q, id, userID, state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
