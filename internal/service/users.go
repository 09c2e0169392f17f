// Package service contains the application services behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/keepsake/internal/auth"
	pkgcrypto "github.com/and161185/keepsake/internal/crypto"
	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/limiter"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// UserService defines account and session operations.
type UserService interface {
	// Signup creates a new user with a hashed password.
	Signup(ctx context.Context, username, email, password string) (*model.User, error)
	// Login applies rate limiting by (username, addr) and issues an access token.
	Login(ctx context.Context, username, password, addr string) (model.Tokens, model.User, error)
	// Logout revokes token; a second logout of the same token fails.
	Logout(ctx context.Context, token string) error

	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	PatchDescription(ctx context.Context, id uuid.UUID, description string) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserServiceImpl struct {
	users  repository.UserRepository
	signer *auth.Signer
	lim    limiter.Limiter
	ledger TokenLedger
	now    func() time.Time
}

// NewUserService constructs UserService with required dependencies.
func NewUserService(users repository.UserRepository, signer *auth.Signer, lim limiter.Limiter, ledger TokenLedger) *UserServiceImpl {
	return &UserServiceImpl{users: users, signer: signer, lim: lim, ledger: ledger, now: time.Now}
}

var errBadCredentials = errs.New(errs.ErrUnauthorized, "Invalid username or password")

// Signup checks uniqueness up front for a friendly message; the unique
// indexes still decide races.
func (s *UserServiceImpl) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, errs.New(errs.ErrValidation, "Missing parameters")
	}
	taken, err := s.users.ExistsUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, errs.New(errs.ErrAlreadyExists, "This username is already taken")
	}
	taken, err = s.users.ExistsEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, errs.New(errs.ErrAlreadyExists, "This email is already taken")
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, err := pkgcrypto.EncodePassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		ID:          uid,
		Username:    username,
		Email:       email,
		PwdHash:     hash,
		Collections: []uuid.UUID{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates with rate limiting by (username, addr).
func (s *UserServiceImpl) Login(ctx context.Context, username, password, addr string) (model.Tokens, model.User, error) {
	if username == "" || password == "" {
		return model.Tokens{}, model.User{}, errs.New(errs.ErrValidation, "Missing parameters")
	}
	allowed, _, err := s.lim.Allow(ctx, username, addr)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.New(errs.ErrRateLimited, "Too many failed attempts. Try again later.")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, fmt.Errorf("load user: %w", err)
	}
	if err != nil || !pkgcrypto.CheckPassword(u.PwdHash, password) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, addr); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.New(errs.ErrRateLimited, "Too many failed attempts. Try again later.")
		}
		return model.Tokens{}, model.User{}, errBadCredentials
	}
	if u.IsBlocked {
		return model.Tokens{}, model.User{}, errs.New(errs.ErrUnauthorized, "This user is blocked.")
	}

	// Best effort: a stale counter only delays the next lockout.
	_ = s.lim.Success(ctx, username, addr)

	access, exp, err := s.signer.Issue(u.ID, u.Username)
	if err != nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	inserted, err := s.ledger.Revoke(ctx, token)
	if err != nil {
		return err
	}
	if !inserted {
		return errs.New(errs.ErrValidation, "User already logged out.")
	}
	return nil
}

func (s *UserServiceImpl) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userErr(err, "load user")
	}
	return u, nil
}

func (s *UserServiceImpl) PatchDescription(ctx context.Context, id uuid.UUID, description string) (*model.User, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errs.New(errs.ErrValidation, "Missing parameters")
	}
	if err := s.users.SetDescription(ctx, id, description); err != nil {
		return nil, userErr(err, "set description")
	}
	return s.Get(ctx, id)
}

func (s *UserServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return userErr(s.users.Delete(ctx, id), "delete user")
}
