package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// Membership maintains the list of collections each user owns.
type Membership interface {
	// AddCollection appends collectionID to the user's list. Duplicates are not checked.
	AddCollection(ctx context.Context, userID, collectionID uuid.UUID) error
	// RemoveCollection drops collectionID from the user's list.
	RemoveCollection(ctx context.Context, userID, collectionID uuid.UUID) error
}

type MembershipImpl struct {
	users repository.UserRepository
}

// NewMembership constructs Membership.
func NewMembership(users repository.UserRepository) *MembershipImpl {
	return &MembershipImpl{users: users}
}

func (m *MembershipImpl) AddCollection(ctx context.Context, userID, collectionID uuid.UUID) error {
	return userErr(m.users.AppendCollection(ctx, userID, collectionID), "add collection to user")
}

func (m *MembershipImpl) RemoveCollection(ctx context.Context, userID, collectionID uuid.UUID) error {
	return userErr(m.users.RemoveCollection(ctx, userID, collectionID), "remove collection from user")
}

func userErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrNotFound):
		return errs.New(errs.ErrNotFound, "User not found")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
