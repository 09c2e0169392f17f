package service

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/limiter"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
	appendErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{byName: map[string]*model.User{}}
	for _, u := range us {
		f.byName[u.Username] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byName[u.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}

func (f *fakeUsers) find(id uuid.UUID) *model.User {
	for _, u := range f.byName {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u := f.find(id)
	if u == nil {
		return nil, errs.ErrNotFound
	}
	c := *u
	c.Collections = slices.Clone(u.Collections)
	return &c, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) ExistsUsername(_ context.Context, username string) (bool, error) {
	_, ok := f.byName[username]
	return ok, nil
}

func (f *fakeUsers) ExistsEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.byName {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range f.byName {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) SetDescription(_ context.Context, id uuid.UUID, d string) error {
	u := f.find(id)
	if u == nil {
		return errs.ErrNotFound
	}
	u.Description = d
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	u := f.find(id)
	if u == nil {
		return errs.ErrNotFound
	}
	delete(f.byName, u.Username)
	return nil
}

func (f *fakeUsers) AppendCollection(_ context.Context, id, cid uuid.UUID) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	u := f.find(id)
	if u == nil {
		return errs.ErrNotFound
	}
	u.Collections = append(u.Collections, cid)
	return nil
}

func (f *fakeUsers) RemoveCollection(_ context.Context, id, cid uuid.UUID) error {
	u := f.find(id)
	if u == nil {
		return errs.ErrNotFound
	}
	u.Collections = slices.DeleteFunc(u.Collections, func(x uuid.UUID) bool { return x == cid })
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, string) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, string) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, string) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

// fakeTags mirrors the SQL semantics of the tag repository.
type fakeTags struct {
	mu     sync.Mutex
	counts map[string]int64
	calls  []string // "+name" / "-name" in call order
	incErr error
}

var _ repository.TagRepository = (*fakeTags)(nil)

func newFakeTags() *fakeTags { return &fakeTags{counts: map[string]int64{}} }

func (f *fakeTags) Increment(_ context.Context, name string) (model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return model.Tag{}, f.incErr
	}
	f.counts[name]++
	f.calls = append(f.calls, "+"+name)
	return model.Tag{Name: name, TimesUsed: f.counts[name]}, nil
}

func (f *fakeTags) Decrement(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "-"+name)
	if f.counts[name] > 0 {
		f.counts[name]--
	}
	return nil
}

func (f *fakeTags) List(context.Context) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Tag{}
	for n, c := range f.counts {
		out = append(out, model.Tag{Name: n, TimesUsed: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTags) Top(ctx context.Context, n int) ([]model.Tag, error) {
	all, _ := f.List(ctx)
	sort.SliceStable(all, func(i, j int) bool { return all[i].TimesUsed > all[j].TimesUsed })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	stored  map[string]time.Time
	listErr error
	purged  int
}

var _ repository.TokenRepository = (*fakeTokens)(nil)

func newFakeTokens() *fakeTokens { return &fakeTokens{stored: map[string]time.Time{}} }

func (f *fakeTokens) Insert(_ context.Context, t model.RevokedToken) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stored[t.Token]; ok {
		return false, nil
	}
	f.stored[t.Token] = t.ExpiresAt
	return true, nil
}

func (f *fakeTokens) Exists(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[token]
	return ok, nil
}

func (f *fakeTokens) List(context.Context) ([]model.RevokedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.RevokedToken{}
	for t, exp := range f.stored {
		out = append(out, model.RevokedToken{Token: t, ExpiresAt: exp})
	}
	return out, nil
}

func (f *fakeTokens) DeleteMany(_ context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range tokens {
		if _, ok := f.stored[t]; ok {
			delete(f.stored, t)
			n++
		}
	}
	f.purged += int(n)
	return n, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

// fakeCollections keeps JSON documents so every Get returns a fresh copy,
// and checks revisions on Save like the Postgres repository.
type fakeCollections struct {
	docs  map[uuid.UUID][]byte
	revs  map[uuid.UUID]int64
	saves int
}

var _ repository.CollectionRepository = (*fakeCollections)(nil)

func newFakeCollections() *fakeCollections {
	return &fakeCollections{docs: map[uuid.UUID][]byte{}, revs: map[uuid.UUID]int64{}}
}

func (f *fakeCollections) Create(_ context.Context, c *model.Collection) error {
	if _, ok := f.docs[c.ID]; ok {
		return errs.ErrAlreadyExists
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	f.docs[c.ID], f.revs[c.ID] = b, c.Rev
	return nil
}

func (f *fakeCollections) Get(_ context.Context, id uuid.UUID) (*model.Collection, error) {
	b, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	var c model.Collection
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.Rev = f.revs[id]
	return &c, nil
}

func (f *fakeCollections) List(ctx context.Context) ([]model.Collection, error) {
	out := []model.Collection{}
	for id := range f.docs {
		c, _ := f.Get(ctx, id)
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCollections) Save(_ context.Context, c *model.Collection) error {
	rev, ok := f.revs[c.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if rev != c.Rev {
		return errs.New(errs.ErrVersionConflict, "Collection was modified concurrently, retry")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	c.Rev++
	f.docs[c.ID], f.revs[c.ID] = b, c.Rev
	f.saves++
	return nil
}

func (f *fakeCollections) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.docs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.docs, id)
	delete(f.revs, id)
	return nil
}

type fakeComments struct {
	byID map[uuid.UUID]model.Comment
}

var _ repository.CommentRepository = (*fakeComments)(nil)

func (f *fakeComments) Create(_ context.Context, c *model.Comment) error {
	if f.byID == nil {
		f.byID = map[uuid.UUID]model.Comment{}
	}
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeComments) Get(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &c, nil
}

func (f *fakeComments) List(context.Context) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeComments) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}
