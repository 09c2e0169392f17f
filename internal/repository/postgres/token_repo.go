package postgres

import (
	"context"

	"github.com/and161185/keepsake/internal/model"
)

// TokenRepo implements TokenRepository for revoked access tokens.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a revoked-token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// Insert stores t unless it is already present.
func (r *TokenRepo) Insert(ctx context.Context, t model.RevokedToken) (bool, error) {
	const q = `INSERT INTO revoked_tokens (token, expires_at) VALUES ($1,$2) ON CONFLICT (token) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q, t.Token, t.ExpiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Exists reports whether token was revoked.
func (r *TokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token=$1)`
	var ok bool
	err := r.db.Pool.QueryRow(ctx, q, token).Scan(&ok)
	return ok, err
}

// List returns all revoked tokens.
func (r *TokenRepo) List(ctx context.Context) ([]model.RevokedToken, error) {
	const q = `SELECT token, expires_at FROM revoked_tokens`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RevokedToken
	for rows.Next() {
		var t model.RevokedToken
		if err := rows.Scan(&t.Token, &t.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteMany removes the listed tokens in one statement.
func (r *TokenRepo) DeleteMany(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM revoked_tokens WHERE token = ANY($1)`
	tag, err := r.db.Pool.Exec(ctx, q, tokens)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
