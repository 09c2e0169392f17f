package postgres

import (
	"context"
	"errors"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CommentRepo implements CommentRepository using PostgreSQL.
type CommentRepo struct{ db *DB }

// NewCommentRepo constructs a comment repository.
func NewCommentRepo(db *DB) *CommentRepo { return &CommentRepo{db: db} }

// Create inserts a comment row.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	const q = `INSERT INTO comments (id, author_id, text, created_at) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.AuthorID, c.Text, c.CreatedAt)
	return err
}

// Get selects a comment by ID.
func (r *CommentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	const q = `SELECT id, author_id, text, created_at FROM comments WHERE id=$1`
	var c model.Comment
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns every comment, oldest first.
func (r *CommentRepo) List(ctx context.Context) ([]model.Comment, error) {
	const q = `SELECT id, author_id, text, created_at FROM comments ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a comment.
func (r *CommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM comments WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
