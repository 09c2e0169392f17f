package postgres

import (
	"context"

	"github.com/and161185/keepsake/internal/model"
)

// TagRepo implements TagRepository. Counter changes are single statements,
// so concurrent increments on one tag are never lost.
type TagRepo struct{ db *DB }

// NewTagRepo constructs a tag repository.
func NewTagRepo(db *DB) *TagRepo { return &TagRepo{db: db} }

// Increment upserts the tag and returns its new count.
func (r *TagRepo) Increment(ctx context.Context, name string) (model.Tag, error) {
	const q = `
INSERT INTO tags (name, times_used) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET times_used = tags.times_used + 1
RETURNING name, times_used`
	var t model.Tag
	err := r.db.Pool.QueryRow(ctx, q, name).Scan(&t.Name, &t.TimesUsed)
	return t, err
}

// Decrement lowers the count by one; absent or zero tags are left alone.
func (r *TagRepo) Decrement(ctx context.Context, name string) error {
	const q = `UPDATE tags SET times_used = times_used - 1 WHERE name=$1 AND times_used > 0`
	_, err := r.db.Pool.Exec(ctx, q, name)
	return err
}

// List returns all tags by name.
func (r *TagRepo) List(ctx context.Context) ([]model.Tag, error) {
	const q = `SELECT name, times_used FROM tags ORDER BY name ASC`
	return r.query(ctx, q)
}

// Top returns the n most used tags.
func (r *TagRepo) Top(ctx context.Context, n int) ([]model.Tag, error) {
	const q = `SELECT name, times_used FROM tags ORDER BY times_used DESC, name ASC LIMIT $1`
	return r.query(ctx, q, n)
}

func (r *TagRepo) query(ctx context.Context, q string, args ...any) ([]model.Tag, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.Name, &t.TimesUsed); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
