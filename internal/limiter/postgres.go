package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with a sliding submission window and
// a temporary block once the cap is hit.
type PG struct {
	pool       pgxQuerier
	window     time.Duration
	maxSubmits int
	blockFor   time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxSubmits int, blockFor time.Duration) *PG {
	return &PG{pool: pool, window: window, maxSubmits: maxSubmits, blockFor: blockFor}
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxSubmits int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxSubmits: maxSubmits, blockFor: blockFor}
}

// Allow reports whether the user may submit now and a retry-after duration.
func (l *PG) Allow(ctx context.Context, userID string) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM submit_limiter WHERE user_id=$1`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, userID).Scan(&blockedUntil)
	switch err {
	case nil:
		if blockedUntil.After(time.Now()) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case pgx.ErrNoRows:
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Note records one submission; the counter resets when the previous
// submission fell outside the window. Returns whether a block was placed.
func (l *PG) Note(ctx context.Context, userID string) (bool, time.Duration, error) {
	const q = `
INSERT INTO submit_limiter (user_id, submit_count, blocked_until, updated_at)
VALUES ($1,1,'epoch',now())
ON CONFLICT (user_id) DO UPDATE
SET
  submit_count = CASE WHEN EXCLUDED.updated_at - submit_limiter.updated_at > $2::interval THEN 1 ELSE submit_limiter.submit_count + 1 END,
  updated_at = now()
RETURNING submit_count`
	var count int
	if err := l.pool.QueryRow(ctx, q, userID, l.window).Scan(&count); err != nil {
		return false, 0, err
	}
	if count >= l.maxSubmits {
		blockUntil := time.Now().Add(l.blockFor)
		const upd = `UPDATE submit_limiter SET blocked_until=$2 WHERE user_id=$1`
		if _, err := l.pool.Exec(ctx, upd, userID, blockUntil); err != nil {
			return false, 0, err
		}
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
