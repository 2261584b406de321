package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ubudget/service-ledger-go/internal/reminder/entity"
)

// ReminderRepo provides data access for the reminders table using sqlx.
type ReminderRepo struct {
	db *sqlx.DB
}

func NewReminderRepo(db *sqlx.DB) *ReminderRepo { return &ReminderRepo{db: db} }

// EnsureTable creates the reminders table if not exists (idempotent).
func (r *ReminderRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS reminders (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  obligation_id BIGINT REFERENCES obligations(id) ON DELETE SET NULL,
  account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
  title VARCHAR(200) NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  remind_at TIMESTAMPTZ NOT NULL,
  channel_set JSONB NOT NULL DEFAULT '{}'::jsonb,
  is_sent BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reminders_user_remind_sent ON reminders(user_id, remind_at, is_sent);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// UserExists reports whether an active user row exists.
func (r *ReminderRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active = true)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, userID); err != nil {
		return false, err
	}
	return ok, nil
}

// Create inserts a new reminder row and returns the new ID.
func (r *ReminderRepo) Create(ctx context.Context, rem *entity.Reminder) (int64, error) {
	const q = `INSERT INTO reminders (user_id, obligation_id, account_id, title, message, remind_at, channel_set, is_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.GetContext(ctx, &rem.ID, q,
		rem.UserID, rem.ObligationID, rem.AccountID, rem.Title, rem.Message, rem.RemindAt, rem.ChannelSet, rem.IsSent); err != nil {
		return 0, err
	}
	return rem.ID, nil
}

func (r *ReminderRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Reminder, error) {
	const q = `SELECT id, user_id, obligation_id, account_id, title, message, remind_at, channel_set, is_sent, created_at
		FROM reminders WHERE user_id = $1 ORDER BY remind_at ASC`
	var rows []*entity.Reminder
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDue returns unsent reminders whose remind_at has passed.
func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Reminder, error) {
	const q = `SELECT id, user_id, obligation_id, account_id, title, message, remind_at, channel_set, is_sent, created_at
		FROM reminders WHERE is_sent = false AND remind_at <= $1 ORDER BY remind_at ASC`
	var rows []*entity.Reminder
	if err := r.db.SelectContext(ctx, &rows, q, now); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent flips the sent flag once. Returns false when the reminder is
// missing or already sent.
func (r *ReminderRepo) MarkSent(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE reminders SET is_sent = true WHERE id = $1 AND is_sent = false RETURNING 1`
	var one int
	if err := r.db.GetContext(ctx, &one, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
