package service

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/keepsake/internal/auth"
	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"go.uber.org/zap"
)

// TokenLedger records logged-out tokens until they expire.
type TokenLedger interface {
	// Revoke stores token and reports whether it was newly inserted.
	Revoke(ctx context.Context, token string) (bool, error)
	// IsRevoked reports whether token has been logged out.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PurgeExpired deletes entries whose token has expired and returns how many went away.
	PurgeExpired(ctx context.Context) (int64, error)
}

type LedgerImpl struct {
	repo   repository.TokenRepository
	signer *auth.Signer
	log    *zap.Logger
	now    func() time.Time
}

// NewLedger constructs TokenLedger. The signer decodes exp claims.
func NewLedger(repo repository.TokenRepository, signer *auth.Signer, log *zap.Logger) *LedgerImpl {
	return &LedgerImpl{repo: repo, signer: signer, log: log, now: time.Now}
}

func (l *LedgerImpl) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, errs.New(errs.ErrValidation, "Missing parameters")
	}
	exp, err := l.signer.Expiry(token)
	if err != nil {
		return false, errs.New(errs.ErrUnauthorized, "Bad token")
	}
	inserted, err := l.repo.Insert(ctx, model.RevokedToken{Token: token, ExpiresAt: exp})
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return inserted, nil
}

func (l *LedgerImpl) IsRevoked(ctx context.Context, token string) (bool, error) {
	ok, err := l.repo.Exists(ctx, token)
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return ok, nil
}

// PurgeExpired reads exp from each stored token. Tokens that no longer verify
// against the signing key fall back to the expiry recorded at revoke time.
func (l *LedgerImpl) PurgeExpired(ctx context.Context) (int64, error) {
	all, err := l.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list revoked tokens: %w", err)
	}
	now := l.now()
	var expired []string
	for _, t := range all {
		exp, err := l.signer.Expiry(t.Token)
		if err != nil {
			l.log.Warn("undecodable revoked token", zap.Error(err), zap.Time("stored_exp", t.ExpiresAt))
			exp = t.ExpiresAt
			if exp.IsZero() {
				continue
			}
		}
		if !now.Before(exp) {
			expired = append(expired, t.Token)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	n, err := l.repo.DeleteMany(ctx, expired)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return n, nil
}

// RunSweeper calls PurgeExpired every interval until ctx is done.
func (l *LedgerImpl) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Info("token sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("token sweeper stopped")
			return
		case <-ticker.C:
			n, err := l.PurgeExpired(ctx)
			if err != nil {
				l.log.Error("purge expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				l.log.Info("purged expired tokens", zap.Int64("count", n))
			}
		}
	}
}
