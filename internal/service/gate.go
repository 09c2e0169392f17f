package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/keepsake/internal/auth"
	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
)

// Gate decides whether a request token belongs to an active user.
type Gate interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

type GateImpl struct {
	ledger TokenLedger
	signer *auth.Signer
	users  repository.UserRepository
}

// NewGate constructs Gate.
func NewGate(ledger TokenLedger, signer *auth.Signer, users repository.UserRepository) *GateImpl {
	return &GateImpl{ledger: ledger, signer: signer, users: users}
}

// Verify checks, in order: presence, revocation, signature, expiry, user existence
// and the blocked flag. Every rejection is errs.ErrUnauthorized with a client message.
func (g *GateImpl) Verify(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, errs.New(errs.ErrUnauthorized, "User not authenticated")
	}
	revoked, err := g.ledger.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errs.New(errs.ErrUnauthorized, "User not authenticated")
	}

	claims, err := g.signer.Parse(token)
	switch {
	case errors.Is(err, auth.ErrExpired):
		return nil, errs.New(errs.ErrUnauthorized, "Token expired. Please log in.")
	case err != nil:
		return nil, errs.New(errs.ErrUnauthorized, "Bad token")
	}

	u, err := g.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.New(errs.ErrUnauthorized, "User not found")
		}
		return nil, fmt.Errorf("load token user: %w", err)
	}
	if u.IsBlocked {
		return nil, errs.New(errs.ErrUnauthorized, "User blocked")
	}
	return u, nil
}
