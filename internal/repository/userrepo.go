// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access for users and their collection back-references.
type UserRepository interface {
	// Create inserts a new user; duplicates yield errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// ExistsUsername reports whether a username is taken.
	ExistsUsername(ctx context.Context, username string) (bool, error)
	// ExistsEmail reports whether an email is taken.
	ExistsEmail(ctx context.Context, email string) (bool, error)
	// List returns every user.
	List(ctx context.Context) ([]model.User, error)
	// SetDescription replaces a user's profile description.
	SetDescription(ctx context.Context, id uuid.UUID, description string) error
	// Delete removes a user.
	Delete(ctx context.Context, id uuid.UUID) error
	// AppendCollection adds collectionID to the end of the user's collection list.
	AppendCollection(ctx context.Context, id, collectionID uuid.UUID) error
	// RemoveCollection drops every occurrence of collectionID from the list.
	RemoveCollection(ctx context.Context, id, collectionID uuid.UUID) error
}
