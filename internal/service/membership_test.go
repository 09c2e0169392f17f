package service

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

func TestMembership_AddRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Username: "a", Collections: []uuid.UUID{}}
	m := NewMembership(newFakeUsers(u))
	c1, c2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	for _, c := range []uuid.UUID{c1, c2, c1} {
		if err := m.AddCollection(ctx, u.ID, c); err != nil {
			t.Fatalf("AddCollection: %v", err)
		}
	}
	if len(u.Collections) != 3 {
		t.Fatalf("duplicates are kept, got %v", u.Collections)
	}
	if err := m.RemoveCollection(ctx, u.ID, c1); err != nil {
		t.Fatalf("RemoveCollection: %v", err)
	}
	if len(u.Collections) != 1 || u.Collections[0] != c2 {
		t.Fatalf("unexpected collections %v", u.Collections)
	}

	ghost := uuid.Must(uuid.NewV4())
	if err := m.AddCollection(ctx, ghost, c1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.RemoveCollection(ctx, ghost, c1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
