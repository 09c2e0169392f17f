// Package client is a typed HTTP client for the keepsake API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// Client talks to one server. Tokens are passed per call; the client keeps no session.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for base, e.g. "http://localhost:8080".
// A nil hc means a client with a 30s timeout.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// Session is what login returns.
type Session struct {
	Username  string    `json:"username"`
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// User is a public profile.
type User struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Description string      `json:"description"`
	Collections []uuid.UUID `json:"collections"`
	IsAdmin     bool        `json:"isAdmin"`
	IsBlocked   bool        `json:"isBlocked"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewCollection is the create-collection payload.
type NewCollection struct {
	Name         string              `json:"name"`
	Theme        string              `json:"theme"`
	Description  string              `json:"description,omitempty"`
	ImageURL     string              `json:"imageUrl,omitempty"`
	CustomFields []model.CustomField `json:"customFields,omitempty"`
}

// NewItem is the add-item payload. Tags must be non-nil.
type NewItem struct {
	Name         string              `json:"name"`
	Tags         []string            `json:"tags"`
	CustomFields []model.CustomField `json:"customFields,omitempty"`
}

// ItemPatch edits an item; nil fields are left as they are.
type ItemPatch struct {
	Name         *string             `json:"name,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	CustomFields []model.CustomField `json:"customFields,omitempty"`
}

// Signup registers an account.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*User, error) {
	var u User
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/user", "", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var s Session
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/user/login", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logout revokes token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/user/logout", token, struct{}{}, nil)
}

// Users lists every profile.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	return out, c.do(ctx, http.MethodGet, "/api/user", "", nil, &out)
}

// User returns one profile.
func (c *Client) User(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/user/"+id.String(), "", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetDescription replaces the profile description.
func (c *Client) SetDescription(ctx context.Context, token string, id uuid.UUID, description string) (*User, error) {
	var u User
	body := map[string]string{"description": description}
	if err := c.do(ctx, http.MethodPatch, "/api/user/"+id.String()+"/patchDesc", token, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, token string, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/user/"+id.String(), token, nil, nil)
}

// Collections lists every collection.
func (c *Client) Collections(ctx context.Context) ([]model.Collection, error) {
	var out []model.Collection
	return out, c.do(ctx, http.MethodGet, "/api/collection", "", nil, &out)
}

// Collection returns one collection with its items.
func (c *Client) Collection(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	var out model.Collection
	if err := c.do(ctx, http.MethodGet, "/api/collection/"+id.String(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCollection creates a collection owned by the token's user.
func (c *Client) CreateCollection(ctx context.Context, token string, nc NewCollection) (*model.Collection, error) {
	var out model.Collection
	if err := c.do(ctx, http.MethodPost, "/api/collection", token, nc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCollection removes a collection.
func (c *Client) DeleteCollection(ctx context.Context, token string, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/collection/"+id.String(), token, nil, nil)
}

// Items lists the items of a collection.
func (c *Client) Items(ctx context.Context, collectionID uuid.UUID) ([]model.Item, error) {
	var out []model.Item
	return out, c.do(ctx, http.MethodGet, "/api/collection/"+collectionID.String()+"/items", "", nil, &out)
}

// Item returns one item.
func (c *Client) Item(ctx context.Context, collectionID uuid.UUID, itemID int64) (*model.Item, error) {
	var out model.Item
	p := "/api/collection/" + collectionID.String() + "/item/" + strconv.FormatInt(itemID, 10)
	if err := c.do(ctx, http.MethodGet, p, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddItem appends an item to a collection.
func (c *Client) AddItem(ctx context.Context, token string, collectionID uuid.UUID, it NewItem) (*model.Item, error) {
	if it.Tags == nil {
		it.Tags = []string{}
	}
	var out model.Item
	if err := c.do(ctx, http.MethodPost, itemPath(collectionID), token, it, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditItem patches an item.
func (c *Client) EditItem(ctx context.Context, token string, collectionID uuid.UUID, itemID int64, p ItemPatch) (*model.Item, error) {
	body := struct {
		ItemID int64 `json:"itemId"`
		ItemPatch
	}{itemID, p}
	var out model.Item
	if err := c.do(ctx, http.MethodPatch, itemPath(collectionID), token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, token string, collectionID uuid.UUID, itemID int64) error {
	body := map[string]int64{"itemId": itemID}
	return c.do(ctx, http.MethodDelete, itemPath(collectionID), token, body, nil)
}

// Like adds the token user's like to an item, or removes it when unlike is set.
func (c *Client) Like(ctx context.Context, token string, collectionID uuid.UUID, itemID int64, unlike bool) (*model.Item, error) {
	body := struct {
		ItemID int64 `json:"itemId"`
		Unlike bool  `json:"unlike"`
	}{itemID, unlike}
	var out model.Item
	if err := c.do(ctx, http.MethodPost, itemPath(collectionID)+"/like", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tags lists tag counters; top > 0 limits the answer to the most used ones.
func (c *Client) Tags(ctx context.Context, top int) ([]model.Tag, error) {
	p := "/api/tags"
	if top > 0 {
		p += "?" + url.Values{"top": {strconv.Itoa(top)}}.Encode()
	}
	var out []model.Tag
	return out, c.do(ctx, http.MethodGet, p, "", nil, &out)
}

// CreateTag registers a tag name without counting a use.
func (c *Client) CreateTag(ctx context.Context, token, name string) (*model.Tag, error) {
	var out model.Tag
	if err := c.do(ctx, http.MethodPost, "/api/tags", token, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health pings /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func itemPath(collectionID uuid.UUID) string {
	return "/api/collection/" + collectionID.String() + "/item"
}

// do sends body as JSON with the token in the Authorization header and
// decodes a 2xx answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eb struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
