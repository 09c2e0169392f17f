package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// NewCollection is the input of CollectionService.Create.
type NewCollection struct {
	Name         string
	AuthorID     uuid.UUID
	Theme        string
	Description  string
	ImageURL     string
	CustomFields []model.CustomField
}

// NewItem is the input of CollectionService.AddItem.
type NewItem struct {
	Name         string
	Tags         []string
	CustomFields []model.CustomField
}

// ItemPatch holds the fields EditItem may replace. Nil means "leave as is".
type ItemPatch struct {
	Name         *string
	Tags         []string
	CustomFields []model.CustomField
}

// CollectionService manages collection aggregates and the items embedded in them.
// Writes are revision-checked; a concurrent save surfaces errs.ErrVersionConflict.
type CollectionService interface {
	Create(ctx context.Context, in NewCollection) (*model.Collection, error)
	List(ctx context.Context) ([]model.Collection, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Collection, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddItem(ctx context.Context, collectionID uuid.UUID, in NewItem) (model.Item, error)
	EditItem(ctx context.Context, collectionID uuid.UUID, itemID int64, p ItemPatch) (model.Item, error)
	DeleteItem(ctx context.Context, collectionID uuid.UUID, itemID int64) error
	LikeItem(ctx context.Context, collectionID uuid.UUID, itemID int64, userID uuid.UUID, unlike bool) (model.Item, error)
	ListItems(ctx context.Context, collectionID uuid.UUID) ([]model.Item, error)
	GetItem(ctx context.Context, collectionID uuid.UUID, itemID int64) (model.Item, error)
}

type CollectionServiceImpl struct {
	repo    repository.CollectionRepository
	tags    TagCounter
	members Membership
	now     func() time.Time
}

// NewCollectionService constructs CollectionService.
func NewCollectionService(repo repository.CollectionRepository, tags TagCounter, members Membership) *CollectionServiceImpl {
	return &CollectionServiceImpl{repo: repo, tags: tags, members: members, now: time.Now}
}

var (
	errMissing      = errs.New(errs.ErrValidation, "Missing parameters")
	errNoCollection = errs.New(errs.ErrNotFound, "Collection not found")
	errNoItem       = errs.New(errs.ErrNotFound, "Item not found")
	errNoLike       = errs.New(errs.ErrValidation, "This user has no like on this item")
)

// Create stores an empty collection and registers it with its author.
// A membership failure after the insert is returned as is; the collection stays.
func (s *CollectionServiceImpl) Create(ctx context.Context, in NewCollection) (*model.Collection, error) {
	if strings.TrimSpace(in.Name) == "" || in.AuthorID == uuid.Nil || strings.TrimSpace(in.Theme) == "" {
		return nil, errMissing
	}
	if err := model.ValidateFields(in.CustomFields); err != nil {
		return nil, errs.New(errs.ErrValidation, err.Error())
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := &model.Collection{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		AuthorID:     in.AuthorID,
		Theme:        in.Theme,
		ImageURL:     in.ImageURL,
		CustomFields: nonNil(in.CustomFields),
		Rev:          1,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	if err := s.members.AddCollection(ctx, in.AuthorID, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CollectionServiceImpl) List(ctx context.Context) ([]model.Collection, error) {
	return s.repo.List(ctx)
}

func (s *CollectionServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errNoCollection
		}
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c, nil
}

// Delete unlinks the collection from its author before removing it.
// A missing author leaves nothing to unlink.
func (s *CollectionServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.members.RemoveCollection(ctx, c.AuthorID, c.ID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errNoCollection
		}
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// AddItem appends an item under the next id and counts its tags once saved.
func (s *CollectionServiceImpl) AddItem(ctx context.Context, collectionID uuid.UUID, in NewItem) (model.Item, error) {
	if strings.TrimSpace(in.Name) == "" || in.Tags == nil {
		return model.Item{}, errMissing
	}
	if err := model.ValidateFields(in.CustomFields); err != nil {
		return model.Item{}, errs.New(errs.ErrValidation, err.Error())
	}
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return model.Item{}, err
	}
	it := c.Items.Append(model.Item{
		Name:         in.Name,
		Tags:         slices.Clone(in.Tags),
		LikedBy:      []uuid.UUID{},
		CommentIDs:   []uuid.UUID{},
		CustomFields: nonNil(in.CustomFields),
		CollectionID: c.ID,
		CreatedAt:    s.now().UTC(),
	})
	if err := s.save(ctx, c); err != nil {
		return model.Item{}, err
	}
	for _, tag := range it.Tags {
		if err := s.tags.Increment(ctx, tag); err != nil {
			return it, err
		}
	}
	return it, nil
}

// EditItem replaces the provided fields. Changed tags are handled as a full
// replace: every old tag is decremented, then every new tag incremented.
func (s *CollectionServiceImpl) EditItem(ctx context.Context, collectionID uuid.UUID, itemID int64, p ItemPatch) (model.Item, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return model.Item{}, errMissing
	}
	if err := model.ValidateFields(p.CustomFields); err != nil {
		return model.Item{}, errs.New(errs.ErrValidation, err.Error())
	}
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return model.Item{}, err
	}
	it, ok := c.Items.Get(itemID)
	if !ok {
		return model.Item{}, errNoItem
	}

	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.CustomFields != nil {
		it.CustomFields = slices.Clone(p.CustomFields)
	}
	var oldTags, newTags []string
	if p.Tags != nil && !model.SameTags(it.Tags, p.Tags) {
		oldTags, newTags = it.Tags, slices.Clone(p.Tags)
		it.Tags = newTags
	}
	out := *it

	if err := s.save(ctx, c); err != nil {
		return model.Item{}, err
	}
	for _, tag := range oldTags {
		if err := s.tags.Decrement(ctx, tag); err != nil {
			return out, err
		}
	}
	for _, tag := range newTags {
		if err := s.tags.Increment(ctx, tag); err != nil {
			return out, err
		}
	}
	return out, nil
}

// DeleteItem removes the item with itemID. Tag counters are not touched.
func (s *CollectionServiceImpl) DeleteItem(ctx context.Context, collectionID uuid.UUID, itemID int64) error {
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	c.Items.Remove(itemID)
	return s.save(ctx, c)
}

// LikeItem appends userID to the item's likes, or with unlike removes every
// occurrence of it. Liking twice records two entries.
func (s *CollectionServiceImpl) LikeItem(ctx context.Context, collectionID uuid.UUID, itemID int64, userID uuid.UUID, unlike bool) (model.Item, error) {
	if userID == uuid.Nil {
		return model.Item{}, errMissing
	}
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return model.Item{}, err
	}
	it, ok := c.Items.Get(itemID)
	if !ok {
		return model.Item{}, errNoItem
	}

	if unlike {
		if !it.LikedByUser(userID) {
			return model.Item{}, errNoLike
		}
		it.LikedBy = slices.DeleteFunc(it.LikedBy, func(id uuid.UUID) bool { return id == userID })
	} else {
		it.LikedBy = append(it.LikedBy, userID)
	}
	out := *it

	if err := s.save(ctx, c); err != nil {
		return model.Item{}, err
	}
	return out, nil
}

func (s *CollectionServiceImpl) ListItems(ctx context.Context, collectionID uuid.UUID) ([]model.Item, error) {
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return c.Items.Items(), nil
}

func (s *CollectionServiceImpl) GetItem(ctx context.Context, collectionID uuid.UUID, itemID int64) (model.Item, error) {
	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return model.Item{}, err
	}
	it, ok := c.Items.Get(itemID)
	if !ok {
		return model.Item{}, errNoItem
	}
	return *it, nil
}

func (s *CollectionServiceImpl) save(ctx context.Context, c *model.Collection) error {
	if err := s.repo.Save(ctx, c); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errNoCollection
		}
		return fmt.Errorf("save collection: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
