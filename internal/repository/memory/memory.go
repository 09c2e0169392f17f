// Package memory implements the repository interfaces in process memory.
// It backs the server when no database is configured and is used by
// end-to-end handler tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

var (
	_ repository.UserRepository       = (*Users)(nil)
	_ repository.CollectionRepository = (*Collections)(nil)
	_ repository.TagRepository        = (*Tags)(nil)
	_ repository.TokenRepository      = (*Tokens)(nil)
	_ repository.CommentRepository    = (*Comments)(nil)
)

// Users holds user rows.
type Users struct {
	mu    sync.Mutex
	users []model.User
}

// NewUsers returns an empty user store.
func NewUsers() *Users { return &Users{} }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		switch {
		case x.Username == u.Username:
			return errs.New(errs.ErrAlreadyExists, "This username is already taken")
		case x.Email == u.Email:
			return errs.New(errs.ErrAlreadyExists, "This email is already taken")
		}
	}
	cp := *u
	cp.Collections = slices.Clone(u.Collections)
	if cp.Collections == nil {
		cp.Collections = []uuid.UUID{}
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.users = append(s.users, cp)
	return nil
}

func (s *Users) index(match func(*model.User) bool) int {
	for i := range s.users {
		if match(&s.users[i]) {
			return i
		}
	}
	return -1
}

func (s *Users) get(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(match)
	if i < 0 {
		return nil, errs.ErrNotFound
	}
	cp := s.users[i]
	cp.Collections = slices.Clone(cp.Collections)
	return &cp, nil
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return s.get(func(u *model.User) bool { return u.ID == id })
}

func (s *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.get(func(u *model.User) bool { return u.Username == username })
}

func (s *Users) ExistsUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	return err == nil, nil
}

func (s *Users) ExistsEmail(_ context.Context, email string) (bool, error) {
	_, err := s.get(func(u *model.User) bool { return u.Email == email })
	return err == nil, nil
}

func (s *Users) List(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, len(s.users))
	for i, u := range s.users {
		u.Collections = slices.Clone(u.Collections)
		out[i] = u
	}
	return out, nil
}

func (s *Users) update(id uuid.UUID, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(func(u *model.User) bool { return u.ID == id })
	if i < 0 {
		return errs.ErrNotFound
	}
	fn(&s.users[i])
	return nil
}

func (s *Users) SetDescription(_ context.Context, id uuid.UUID, d string) error {
	return s.update(id, func(u *model.User) { u.Description = d })
}

func (s *Users) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(func(u *model.User) bool { return u.ID == id })
	if i < 0 {
		return errs.ErrNotFound
	}
	s.users = slices.Delete(s.users, i, i+1)
	return nil
}

func (s *Users) AppendCollection(_ context.Context, id, cid uuid.UUID) error {
	return s.update(id, func(u *model.User) { u.Collections = append(u.Collections, cid) })
}

func (s *Users) RemoveCollection(_ context.Context, id, cid uuid.UUID) error {
	return s.update(id, func(u *model.User) {
		u.Collections = slices.DeleteFunc(u.Collections, func(x uuid.UUID) bool { return x == cid })
	})
}

type doc struct {
	rev     int64
	body    []byte
	created time.Time
}

// Collections stores aggregates as JSON so readers never share memory with writers.
type Collections struct {
	mu   sync.Mutex
	docs map[uuid.UUID]doc
}

// NewCollections returns an empty collection store.
func NewCollections() *Collections { return &Collections{docs: map[uuid.UUID]doc{}} }

func (r *Collections) Create(_ context.Context, c *model.Collection) error {
	if c.Rev != 1 {
		return fmt.Errorf("create collection: rev must be 1, got %d", c.Rev)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[c.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.docs[c.ID] = doc{rev: 1, body: b, created: c.CreatedAt}
	return nil
}

func decode(d doc) (*model.Collection, error) {
	var c model.Collection
	if err := json.Unmarshal(d.body, &c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	c.Rev = d.rev
	return &c, nil
}

func (r *Collections) Get(_ context.Context, id uuid.UUID) (*model.Collection, error) {
	r.mu.Lock()
	d, ok := r.docs[id]
	r.mu.Unlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return decode(d)
}

func (r *Collections) List(context.Context) ([]model.Collection, error) {
	r.mu.Lock()
	ds := make([]doc, 0, len(r.docs))
	for _, d := range r.docs {
		ds = append(ds, d)
	}
	r.mu.Unlock()

	sort.Slice(ds, func(i, j int) bool { return ds[i].created.Before(ds[j].created) })
	out := make([]model.Collection, 0, len(ds))
	for _, d := range ds {
		c, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *Collections) Save(_ context.Context, c *model.Collection) error {
	next := *c
	next.Rev = c.Rev + 1
	b, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[c.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if d.rev != c.Rev {
		return errs.New(errs.ErrVersionConflict, "Collection was modified concurrently, retry")
	}
	r.docs[c.ID] = doc{rev: next.Rev, body: b, created: d.created}
	c.Rev = next.Rev
	return nil
}

func (r *Collections) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// Tags is an in-memory tag counter table.
type Tags struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewTags returns an empty tag table.
func NewTags() *Tags { return &Tags{counts: map[string]int64{}} }

func (t *Tags) Increment(_ context.Context, name string) (model.Tag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[name]++
	return model.Tag{Name: name, TimesUsed: t.counts[name]}, nil
}

func (t *Tags) Decrement(_ context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[name] > 0 {
		t.counts[name]--
	}
	return nil
}

func (t *Tags) List(context.Context) ([]model.Tag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Tag, 0, len(t.counts))
	for n, c := range t.counts {
		out = append(out, model.Tag{Name: n, TimesUsed: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *Tags) Top(ctx context.Context, n int) ([]model.Tag, error) {
	all, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].TimesUsed > all[j].TimesUsed })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Tokens is an in-memory revoked-token table.
type Tokens struct {
	mu sync.Mutex
	m  map[string]time.Time
}

// NewTokens returns an empty token table.
func NewTokens() *Tokens { return &Tokens{m: map[string]time.Time{}} }

func (t *Tokens) Insert(_ context.Context, rt model.RevokedToken) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[rt.Token]; ok {
		return false, nil
	}
	t.m[rt.Token] = rt.ExpiresAt
	return true, nil
}

func (t *Tokens) Exists(_ context.Context, token string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.m[token]
	return ok, nil
}

func (t *Tokens) List(context.Context) ([]model.RevokedToken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.RevokedToken, 0, len(t.m))
	for tok, exp := range t.m {
		out = append(out, model.RevokedToken{Token: tok, ExpiresAt: exp})
	}
	return out, nil
}

func (t *Tokens) DeleteMany(_ context.Context, tokens []string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for _, tok := range tokens {
		if _, ok := t.m[tok]; ok {
			delete(t.m, tok)
			n++
		}
	}
	return n, nil
}

// Comments is an in-memory comment table.
type Comments struct {
	mu   sync.Mutex
	list []model.Comment
}

// NewComments returns an empty comment table.
func NewComments() *Comments { return &Comments{} }

func (c *Comments) Create(_ context.Context, cm *model.Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, *cm)
	return nil
}

func (c *Comments) Get(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cm := range c.list {
		if cm.ID == id {
			return &cm, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (c *Comments) List(context.Context) ([]model.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Comment{}, c.list...), nil
}

func (c *Comments) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.list)
	c.list = slices.DeleteFunc(c.list, func(cm model.Comment) bool { return cm.ID == id })
	if len(c.list) == n {
		return errs.ErrNotFound
	}
	return nil
}
