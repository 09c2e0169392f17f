package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/and161185/keepsake/internal/auth"
	"github.com/and161185/keepsake/internal/limiter"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/ratelimit"
	"github.com/and161185/keepsake/internal/repository/memory"
	"github.com/and161185/keepsake/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type env struct {
	h      http.Handler
	tags   *memory.Tags
	signer *auth.Signer
}

func newEnv(t *testing.T, authLimiter *ratelimit.KeyedRateLimiter, ping func(context.Context) error) *env {
	t.Helper()
	log := zaptest.NewLogger(t)
	signer := auth.NewSigner([]byte("test-key"), 8*time.Hour)

	users := memory.NewUsers()
	tags := memory.NewTags()
	ledger := service.NewLedger(memory.NewTokens(), signer, log)
	tagSvc := service.NewTagService(tags)

	s := New(Deps{
		Users:       service.NewUserService(users, signer, limiter.Nop{}, ledger),
		Collections: service.NewCollectionService(memory.NewCollections(), tagSvc, service.NewMembership(users)),
		Tags:        tagSvc,
		Comments:    service.NewCommentService(memory.NewComments()),
		Gate:        service.NewGate(ledger, signer, users),
		Ping:        ping,
		AuthLimiter: authLimiter,
		CORSOrigins: []string{"http://localhost:3000"},
		Log:         log,
	})
	return &env{h: s, tags: tags, signer: signer}
}

func (e *env) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorText(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorBody](t, rec).Error
}

// signupLogin registers a user and returns its login response.
func (e *env) signupLogin(t *testing.T, name string) loginResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/user/", map[string]string{
		"username": name, "email": name + "@example.com", "password": "pwd",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/user/login", map[string]string{"username": name, "password": "pwd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[loginResponse](t, rec)
}

type collectionView struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Items    struct {
		State  string       `json:"state"`
		NextID int64        `json:"nextId"`
		Items  []model.Item `json:"items"`
	} `json:"items"`
}

func TestAPI_CoinsScenario(t *testing.T) {
	e := newEnv(t, nil, nil)
	alice := e.signupLogin(t, "alice")
	require.NotEmpty(t, alice.Token)

	rec := e.do(t, http.MethodPost, "/api/collection/", map[string]any{
		"name": "Coins", "authorId": alice.UserID, "theme": "Coins", "token": alice.Token,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	coll := decodeBody[collectionView](t, rec)
	require.Equal(t, "empty", coll.Items.State)

	base := "/api/collection/" + coll.ID
	rec = e.do(t, http.MethodPost, base+"/item/", map[string]any{
		"name": "Penny", "tags": []string{"copper"}, "token": alice.Token,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, int64(1), decodeBody[model.Item](t, rec).ID)

	rec = e.do(t, http.MethodGet, base+"/items/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]model.Item](t, rec), 1)

	rec = e.do(t, http.MethodGet, "/api/tags/", nil)
	require.Equal(t, []model.Tag{{Name: "copper", TimesUsed: 1}}, decodeBody[[]model.Tag](t, rec))

	rec = e.do(t, http.MethodDelete, base+"/item/", map[string]any{"itemId": 1, "token": alice.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, base+"/items/", nil)
	require.Empty(t, decodeBody[[]model.Item](t, rec))
	rec = e.do(t, http.MethodGet, "/api/tags/?top=5", nil)
	require.Equal(t, []model.Tag{{Name: "copper", TimesUsed: 1}}, decodeBody[[]model.Tag](t, rec))

	rec = e.do(t, http.MethodGet, "/api/user/"+alice.UserID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[userResponse](t, rec).Collections, 1)

	rec = e.do(t, http.MethodDelete, base, map[string]any{"token": alice.Token})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	require.Empty(t, rec.Body.String())
	rec = e.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Collection not found", errorText(t, rec))
}

func TestAPI_EditLikeAndOwnership(t *testing.T) {
	e := newEnv(t, nil, nil)
	alice := e.signupLogin(t, "alice")
	bob := e.signupLogin(t, "bob")

	rec := e.do(t, http.MethodPost, "/api/collection", map[string]any{"name": "Coins", "theme": "Coins", "token": alice.Token})
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/collection/" + decodeBody[collectionView](t, rec).ID

	rec = e.do(t, http.MethodPost, base+"/item", map[string]any{"name": "Penny", "tags": []string{"copper"}, "token": alice.Token})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPatch, base+"/item", map[string]any{"itemId": 1, "tags": []string{"copper", "rare"}, "token": alice.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, []model.Tag{{Name: "copper", TimesUsed: 1}, {Name: "rare", TimesUsed: 1}}, decodeBody[[]model.Tag](t, rec))

	rec = e.do(t, http.MethodPost, base+"/item", map[string]any{"name": "Dime", "tags": []string{}, "token": bob.Token})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, base+"/item/like", map[string]any{"itemId": 1, "unlike": true, "token": bob.Token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "This user has no like on this item", errorText(t, rec))

	for range 2 {
		rec = e.do(t, http.MethodPost, base+"/item/like", map[string]any{"itemId": 1, "token": bob.Token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	require.Len(t, decodeBody[model.Item](t, rec).LikedBy, 2)

	rec = e.do(t, http.MethodGet, base+"/item/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, base+"/item/9", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Item not found", errorText(t, rec))
	rec = e.do(t, http.MethodGet, base+"/item/zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AuthGateAndLogout(t *testing.T) {
	e := newEnv(t, nil, nil)
	alice := e.signupLogin(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/tags/", map[string]any{"name": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "User not authenticated", errorText(t, rec))

	rec = e.do(t, http.MethodPost, "/api/tags/", map[string]any{"name": "x", "token": "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bad token", errorText(t, rec))

	expired, _, err := e.signer.WithClock(func() time.Time { return time.Now().Add(-9 * time.Hour) }).Issue(alice.UserID, "alice")
	require.NoError(t, err)
	rec = e.do(t, http.MethodPost, "/api/tags/", map[string]any{"name": "x", "token": expired})
	require.Equal(t, "Token expired. Please log in.", errorText(t, rec))

	rec = e.do(t, http.MethodPost, "/api/tags/", map[string]any{"name": "x"}, "Authorization", "Bearer "+alice.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/user/logout", map[string]any{"token": alice.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/user/logout", map[string]any{"token": alice.Token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "User already logged out.", errorText(t, rec))

	rec = e.do(t, http.MethodPost, "/api/tags/", map[string]any{"name": "x", "token": alice.Token})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "User not authenticated", errorText(t, rec))
}

func TestAPI_SignupAndLoginErrors(t *testing.T) {
	e := newEnv(t, nil, nil)
	e.signupLogin(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/user/", map[string]string{"username": "alice", "email": "z@example.com", "password": "p"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "This username is already taken", errorText(t, rec))

	rec = e.do(t, http.MethodPost, "/api/user/", map[string]string{"username": "bob", "email": "nope", "password": "p"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "email must be a valid email address", errorText(t, rec))

	rec = e.do(t, http.MethodPost, "/api/user/login", map[string]string{"username": "alice", "password": "bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid username or password", errorText(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	e.h.ServeHTTP(out, req)
	require.Equal(t, http.StatusBadRequest, out.Code)
	require.Equal(t, "Malformed JSON body", errorText(t, out))
}

func TestAPI_ProfileAndComments(t *testing.T) {
	e := newEnv(t, nil, nil)
	alice := e.signupLogin(t, "alice")
	bob := e.signupLogin(t, "bob")
	path := "/api/user/" + alice.UserID.String()

	rec := e.do(t, http.MethodPatch, path+"/patchDesc", map[string]any{"description": "hi", "token": bob.Token})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, http.MethodPatch, path+"/patchDesc", map[string]any{"description": "numismatist", "token": alice.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "numismatist", decodeBody[userResponse](t, rec).Description)

	rec = e.do(t, http.MethodPost, "/api/comments", map[string]any{"text": "nice", "token": bob.Token})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeBody[model.Comment](t, rec)

	rec = e.do(t, http.MethodDelete, "/api/comments/"+c.ID.String(), map[string]any{"token": alice.Token})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/comments/"+c.ID.String(), map[string]any{"token": bob.Token})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/comments/"+c.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, path, map[string]any{"token": alice.Token})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	rec = e.do(t, http.MethodGet, "/api/user", nil)
	require.Len(t, decodeBody[[]userResponse](t, rec), 1)
	rec = e.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RouteNotFoundAndHealth(t *testing.T) {
	e := newEnv(t, nil, func(context.Context) error { return nil })
	rec := e.do(t, http.MethodGet, "/api/nowhere", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Route not found.", errorText(t, rec))

	rec = e.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	down := newEnv(t, nil, func(context.Context) error { return errors.New("db down") })
	rec = down.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_AuthRoutesThrottled(t *testing.T) {
	rl := ratelimit.New(0.001, 1, 0)
	t.Cleanup(rl.Stop)
	e := newEnv(t, rl, nil)

	body := map[string]string{"username": "a", "password": "b"}
	first := e.do(t, http.MethodPost, "/api/user/login", body)
	require.NotEqual(t, http.StatusTooManyRequests, first.Code)
	rec := e.do(t, http.MethodPost, "/api/user/login", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, rec.Code, "reads are not throttled")
}

func TestAPI_CORSPreflight(t *testing.T) {
	e := newEnv(t, nil, nil)
	rec := e.do(t, http.MethodOptions, "/api/collection/", nil,
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPost,
	)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
