package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CollectionRepo implements CollectionRepository on a JSONB document column
// guarded by an integer revision.
type CollectionRepo struct{ db *DB }

// NewCollectionRepo constructs a collection repository.
func NewCollectionRepo(db *DB) *CollectionRepo { return &CollectionRepo{db: db} }

// Create inserts a new aggregate document.
func (r *CollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	if c.Rev != 1 {
		return fmt.Errorf("create collection: rev must be 1, got %d", c.Rev)
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	const q = `INSERT INTO collections (id, author_id, rev, doc, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.db.Pool.Exec(ctx, q, c.ID, c.AuthorID, c.Rev, doc, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Get loads an aggregate; the revision column wins over the one inside the document.
func (r *CollectionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	const q = `SELECT rev, doc FROM collections WHERE id=$1`
	var (
		rev int64
		doc []byte
	)
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&rev, &doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return decodeCollection(rev, doc)
}

// List returns all aggregates in creation order.
func (r *CollectionRepo) List(ctx context.Context) ([]model.Collection, error) {
	const q = `SELECT rev, doc FROM collections ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Collection{}
	for rows.Next() {
		var (
			rev int64
			doc []byte
		)
		if err := rows.Scan(&rev, &doc); err != nil {
			return nil, err
		}
		c, err := decodeCollection(rev, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Save writes the document only if nobody saved since c was loaded.
func (r *CollectionRepo) Save(ctx context.Context, c *model.Collection) error {
	next := *c
	next.Rev = c.Rev + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	const upd = `UPDATE collections SET doc=$3, rev=rev+1 WHERE id=$1 AND rev=$2 RETURNING rev`
	var rev int64
	err = r.db.Pool.QueryRow(ctx, upd, c.ID, c.Rev, doc).Scan(&rev)
	switch {
	case err == nil:
		c.Rev = rev
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		const exists = `SELECT EXISTS (SELECT 1 FROM collections WHERE id=$1)`
		var ok bool
		if err := r.db.Pool.QueryRow(ctx, exists, c.ID).Scan(&ok); err != nil {
			return err
		}
		if !ok {
			return errs.ErrNotFound
		}
		return errs.New(errs.ErrVersionConflict, "Collection was modified concurrently, retry")
	default:
		return err
	}
}

// Delete removes an aggregate.
func (r *CollectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM collections WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func decodeCollection(rev int64, doc []byte) (*model.Collection, error) {
	var c model.Collection
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	c.Rev = rev
	return &c, nil
}
