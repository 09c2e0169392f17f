// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID          uuid.UUID   // PK
	Username    string      // unique
	Email       string      // unique
	PwdHash     string      // encoded Argon2id hash, see crypto.EncodePassword
	Description string      // free-form profile text
	Collections []uuid.UUID // owned collection ids, in creation order
	IsAdmin     bool
	IsBlocked   bool
	CreatedAt   time.Time
}

// Tag is a denormalized usage counter for a tag name.
type Tag struct {
	Name      string `json:"name"`
	TimesUsed int64  `json:"timesUsed"`
}

// RevokedToken is a logged-out access token kept until it expires.
type RevokedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Comment is a free-standing text note referenced from items by id.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
