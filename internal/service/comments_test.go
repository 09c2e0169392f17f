package service

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/gofrs/uuid/v5"
)

func TestComments_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewCommentService(&fakeComments{})
	author := uuid.Must(uuid.NewV4())

	if _, err := s.Create(ctx, author, " "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if _, err := s.Create(ctx, uuid.Nil, "hi"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on nil author, got %v", err)
	}

	c, err := s.Create(ctx, author, "nice penny")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil || got.Text != "nice penny" {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if all, _ := s.List(ctx); len(all) != 1 {
		t.Fatalf("List len = %d", len(all))
	}
	if err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, c.ID); !errors.Is(err, errs.ErrNotFound) || err.Error() != "Comment not found" {
		t.Fatalf("want Comment not found, got %v", err)
	}
	if _, err := s.Get(ctx, c.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
