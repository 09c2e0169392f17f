package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/and161185/keepsake/internal/auth"
	"github.com/and161185/keepsake/internal/client"
	"github.com/and161185/keepsake/internal/limiter"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/repository/memory"
	httpserver "github.com/and161185/keepsake/internal/server/http"
	"github.com/and161185/keepsake/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newServer(t *testing.T) *client.Client {
	t.Helper()
	log := zaptest.NewLogger(t)
	signer := auth.NewSigner([]byte("client-test"), time.Hour)
	users := memory.NewUsers()
	ledger := service.NewLedger(memory.NewTokens(), signer, log)
	tags := service.NewTagService(memory.NewTags())

	h := httpserver.New(httpserver.Deps{
		Users:       service.NewUserService(users, signer, limiter.Nop{}, ledger),
		Collections: service.NewCollectionService(memory.NewCollections(), tags, service.NewMembership(users)),
		Tags:        tags,
		Comments:    service.NewCommentService(memory.NewComments()),
		Gate:        service.NewGate(ledger, signer, users),
		Log:         log,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", srv.Client())
}

func TestClient_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	u, err := c.Signup(ctx, "ann", "ann@example.com", "secret")
	require.NoError(t, err)
	s, err := c.Login(ctx, "ann", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)
	assert.NotEmpty(t, s.Token)

	col, err := c.CreateCollection(ctx, s.Token, client.NewCollection{Name: "Coins", Theme: "numismatics"})
	require.NoError(t, err)

	it, err := c.AddItem(ctx, s.Token, col.ID, client.NewItem{Name: "Penny", Tags: []string{"copper"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), it.ID)

	name := "Old penny"
	it, err = c.EditItem(ctx, s.Token, col.ID, it.ID, client.ItemPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Old penny", it.Name)
	assert.Equal(t, []string{"copper"}, it.Tags)

	it, err = c.Like(ctx, s.Token, col.ID, it.ID, false)
	require.NoError(t, err)
	assert.Len(t, it.LikedBy, 1)

	got, err := c.Item(ctx, col.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Old penny", got.Name)

	tags, err := c.Tags(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Tag{{Name: "copper", TimesUsed: 1}}, tags)

	require.NoError(t, c.DeleteItem(ctx, s.Token, col.ID, 1))
	items, err := c.Items(ctx, col.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	me, err := c.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{col.ID.String()}, []string{me.Collections[0].String()})

	require.NoError(t, c.DeleteCollection(ctx, s.Token, col.ID))
	_, err = c.Collection(ctx, col.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
}

func TestClient_LogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	_, err := c.Signup(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)
	s, err := c.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx, s.Token))

	_, err = c.CreateTag(ctx, s.Token, "x")
	var ae *client.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "User not authenticated", ae.Message)

	err = c.Logout(ctx, s.Token)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "User already logged out.", ae.Message)
}

func TestClient_ErrorsCarryServerMessage(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	_, err := c.Login(ctx, "nobody", "pw")
	var ae *client.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "Invalid username or password", ae.Message)
	assert.Contains(t, ae.Error(), "Unauthorized")
}

func TestClient_Health(t *testing.T) {
	require.NoError(t, newServer(t).Health(context.Background()))
}
