package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
)

// TagCounter is the slice of the tag service that item mutations depend on.
type TagCounter interface {
	// Increment creates the tag with count 1 or adds one.
	Increment(ctx context.Context, name string) error
	// Decrement subtracts one; absent or zero tags are left alone.
	Decrement(ctx context.Context, name string) error
}

// TagService exposes tag usage counters.
type TagService interface {
	TagCounter
	// Create registers a tag explicitly; it counts as one use.
	Create(ctx context.Context, name string) (model.Tag, error)
	// ListAll returns every tag ordered by name.
	ListAll(ctx context.Context) ([]model.Tag, error)
	// Top returns the n most used tags.
	Top(ctx context.Context, n int) ([]model.Tag, error)
}

type TagServiceImpl struct {
	repo repository.TagRepository
}

// NewTagService constructs TagService.
func NewTagService(repo repository.TagRepository) *TagServiceImpl {
	return &TagServiceImpl{repo: repo}
}

func (s *TagServiceImpl) Increment(ctx context.Context, name string) error {
	_, err := s.Create(ctx, name)
	return err
}

func (s *TagServiceImpl) Decrement(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.New(errs.ErrValidation, "Missing parameters")
	}
	if err := s.repo.Decrement(ctx, name); err != nil {
		return fmt.Errorf("decrement tag %q: %w", name, err)
	}
	return nil
}

func (s *TagServiceImpl) Create(ctx context.Context, name string) (model.Tag, error) {
	if strings.TrimSpace(name) == "" {
		return model.Tag{}, errs.New(errs.ErrValidation, "Missing parameters")
	}
	t, err := s.repo.Increment(ctx, name)
	if err != nil {
		return model.Tag{}, fmt.Errorf("increment tag %q: %w", name, err)
	}
	return t, nil
}

func (s *TagServiceImpl) ListAll(ctx context.Context) ([]model.Tag, error) {
	return s.repo.List(ctx)
}

// Top caps n at 1 from below.
func (s *TagServiceImpl) Top(ctx context.Context, n int) ([]model.Tag, error) {
	if n < 1 {
		n = 1
	}
	return s.repo.Top(ctx, n)
}
