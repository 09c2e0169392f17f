package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG keeps failure counters in the auth_limiter table.
type PG struct {
	q      Querier
	policy Policy
	now    func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, p Policy) *PG {
	return &PG{q: q, policy: p, now: time.Now}
}

// Allow reports whether the pair is currently unlocked.
func (l *PG) Allow(ctx context.Context, username, addr string) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE username=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, username, hashAddr(addr)).Scan(&blockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if left := blockedUntil.Sub(l.now()); left > 0 {
		return false, left, nil
	}
	return true, 0, nil
}

// Success forgets earlier failures of the pair.
func (l *PG) Success(ctx context.Context, username, addr string) error {
	const q = `DELETE FROM auth_limiter WHERE username=$1 AND ip_hash=$2`
	_, err := l.q.Exec(ctx, q, username, hashAddr(addr))
	return err
}

// Failure counts one more failure within the window and locks the pair once
// MaxFails is reached.
func (l *PG) Failure(ctx context.Context, username, addr string) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (username, ip_hash, fail_count, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (username, ip_hash) DO UPDATE
SET fail_count = CASE
        WHEN now() - auth_limiter.updated_at > $3::interval THEN 1
        ELSE auth_limiter.fail_count + 1
    END,
    updated_at = now()
RETURNING fail_count`
	ipHash := hashAddr(addr)
	var fails int
	if err := l.q.QueryRow(ctx, q, username, ipHash, l.policy.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.policy.MaxFails {
		return false, 0, nil
	}
	const lock = `UPDATE auth_limiter SET blocked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, lock, username, ipHash, l.now().Add(l.policy.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
