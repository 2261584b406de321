package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo stores opaque refresh tokens.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS refresh_sessions (
  token TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, token, userID, expiresAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, token string) (int64, time.Time, error) {
	const q = `SELECT user_id, expires_at FROM refresh_sessions WHERE token = $1`
	var row struct {
		UserID    int64     `db:"user_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	if err := r.db.GetContext(ctx, &row, q, token); err != nil {
		return 0, time.Time{}, err
	}
	return row.UserID, row.ExpiresAt, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token = $1`, token)
	return err
}

// DeleteExpired prunes stale sessions. Intended for a periodic sweep.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
