package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// CommentService stores free-standing comments.
type CommentService interface {
	Create(ctx context.Context, authorID uuid.UUID, text string) (*model.Comment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	List(ctx context.Context) ([]model.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CommentServiceImpl struct {
	repo repository.CommentRepository
	now  func() time.Time
}

// NewCommentService constructs CommentService.
func NewCommentService(repo repository.CommentRepository) *CommentServiceImpl {
	return &CommentServiceImpl{repo: repo, now: time.Now}
}

var errNoComment = errs.New(errs.ErrNotFound, "Comment not found")

func (s *CommentServiceImpl) Create(ctx context.Context, authorID uuid.UUID, text string) (*model.Comment, error) {
	if authorID == uuid.Nil || strings.TrimSpace(text) == "" {
		return nil, errMissing
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := &model.Comment{ID: id, AuthorID: authorID, Text: text, CreatedAt: s.now().UTC()}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

func (s *CommentServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errNoComment
	}
	return c, err
}

func (s *CommentServiceImpl) List(ctx context.Context) ([]model.Comment, error) {
	return s.repo.List(ctx)
}

func (s *CommentServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return errNoComment
	}
	return err
}
