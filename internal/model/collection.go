package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// FieldKind discriminates CustomField variants.
type FieldKind string

// FieldText is the only custom field kind in use.
const FieldText FieldKind = "text"

// CustomField is a typed user-defined attribute of a collection or item.
type CustomField struct {
	Kind    FieldKind `json:"type"`
	Content string    `json:"content"`
}

// Text builds a text custom field.
func Text(content string) CustomField { return CustomField{Kind: FieldText, Content: content} }

// Validate rejects unknown kinds.
func (f CustomField) Validate() error {
	switch f.Kind {
	case FieldText:
		return nil
	default:
		return fmt.Errorf("unknown custom field type %q", f.Kind)
	}
}

// ValidateFields checks every field in fs.
func ValidateFields(fs []CustomField) error {
	for i, f := range fs {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("customFields[%d]: %w", i, err)
		}
	}
	return nil
}

// Collection is the aggregate root: collection metadata plus its embedded items.
type Collection struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	AuthorID     uuid.UUID     `json:"authorId"`
	Theme        string        `json:"theme"`
	ImageURL     string        `json:"imageUrl"`
	CustomFields []CustomField `json:"customFields"`
	Items        ItemList      `json:"items"`
	Rev          int64         `json:"rev"` // optimistic concurrency revision, bumped on every save
	CreatedAt    time.Time     `json:"createdAt"`
}

// Item is a single catalog entry embedded in a Collection.
type Item struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Tags         []string      `json:"tags"`
	LikedBy      []uuid.UUID   `json:"likedBy"`
	CommentIDs   []uuid.UUID   `json:"commentIds"`
	CustomFields []CustomField `json:"customFields"`
	CollectionID uuid.UUID     `json:"collectionId"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// LikedByUser reports whether userID appears in LikedBy.
func (it *Item) LikedByUser(userID uuid.UUID) bool {
	for _, u := range it.LikedBy {
		if u == userID {
			return true
		}
	}
	return false
}

// SameTags reports whether a and b hold the same tags in the same order.
func SameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
