package repository

import (
	"context"

	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CollectionRepository stores collection aggregates as whole documents.
type CollectionRepository interface {
	// Create inserts a new aggregate; c.Rev must be 1.
	Create(ctx context.Context, c *model.Collection) error

	// Get loads an aggregate by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Collection, error)

	// List returns all aggregates ordered by creation time.
	List(ctx context.Context) ([]model.Collection, error)

	// Save persists c if the stored revision still equals c.Rev and bumps c.Rev.
	// A stale revision yields errs.ErrVersionConflict.
	Save(ctx context.Context, c *model.Collection) error

	// Delete removes an aggregate by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagRepository maintains tag usage counters.
type TagRepository interface {
	// Increment creates the tag with count 1 or adds one to it.
	Increment(ctx context.Context, name string) (model.Tag, error)

	// Decrement subtracts one unless the tag is absent or already at zero.
	Decrement(ctx context.Context, name string) error

	// List returns every tag.
	List(ctx context.Context) ([]model.Tag, error)

	// Top returns at most n tags ordered by usage, most used first.
	Top(ctx context.Context, n int) ([]model.Tag, error)
}

// TokenRepository is the store behind the revoked-token ledger.
type TokenRepository interface {
	// Insert stores a token; it reports false when the token was already present.
	Insert(ctx context.Context, t model.RevokedToken) (bool, error)

	// Exists reports whether a token is stored.
	Exists(ctx context.Context, token string) (bool, error)

	// List returns every stored token.
	List(ctx context.Context) ([]model.RevokedToken, error)

	// DeleteMany removes the given tokens and returns how many rows went away.
	DeleteMany(ctx context.Context, tokens []string) (int64, error)
}

// CommentRepository provides CRUD access for comments.
type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	List(ctx context.Context) ([]model.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
