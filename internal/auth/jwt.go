// Package auth issues and parses the HS256 access tokens handed out at login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned for a well-signed token whose exp is in the past.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for malformed tokens, foreign signatures and missing claims.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the payload of an access token. Subject carries the user ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Signer issues and verifies tokens with one HMAC key.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner returns a signer; ttl is the lifetime of issued tokens.
func NewSigner(key []byte, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Issue creates a signed token for the user.
func (s *Signer) Issue(userID uuid.UUID, username string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	return signed, exp, err
}

// Parse verifies the signature and expiry of token.
func (s *Signer) Parse(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return &claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

// Expiry verifies the signature of token and returns its exp claim without
// judging whether that moment has passed.
func (s *Signer) Expiry(token string) (time.Time, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrInvalid)
	}
	return claims.ExpiresAt.Time, nil
}

func (s *Signer) keyFunc(*jwt.Token) (any, error) { return s.key, nil }
