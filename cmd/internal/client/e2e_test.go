package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapi "projectmanager/cmd/internal/auth/api"
	"projectmanager/cmd/internal/auth/session"
	"projectmanager/cmd/internal/client"
	"projectmanager/cmd/security/password"
	authv1 "projectmanager/shared/contracts/auth/v1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newServer(t *testing.T, transport string) (*httptest.Server, *clock) {
	t.Helper()

	st, err := session.OpenSQLite("file:pmclient_" + ulid.Make().String() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	scfg := session.DefaultConfig()
	scfg.Secret = strings.Repeat("c", session.MinSecretBytes)
	codec, err := session.NewAccessTokenCodec(scfg)
	require.NoError(t, err)

	pc := password.DefaultConfig()
	pc.PBKDF2.Iterations = 1000
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := session.NewService(scfg, st, codec, session.WithPasswordConfig(pc), session.WithLogger(log))
	require.NoError(t, err)

	cfg := authapi.DefaultConfig()
	cfg.RefreshTransport = transport
	cfg.CookieSecure = false // httptest serves plain http

	clk := &clock{now: time.Now().UTC()}
	h, err := authapi.NewHandler(log, svc, cfg, authapi.WithClock(clk.Now))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, clk
}

func TestEndToEnd_ExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	srv, clk := newServer(t, authapi.TransportBody)
	ctx := context.Background()

	store := client.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	c, err := client.New(client.Config{BaseURL: srv.URL}, store)
	require.NoError(t, err)

	reg, err := c.Register(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, reg.RefreshToken)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, me.UserID)

	clk.Advance(31 * time.Minute)

	me, err = c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)

	cur, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, reg.RefreshToken, cur.RefreshToken)
	assert.NotEqual(t, reg.AccessToken, cur.AccessToken)

	// The superseded refresh token is dead.
	replay, err := http.Post(srv.URL+authv1.PathRefresh, "application/json",
		strings.NewReader(`{"refreshToken":"`+reg.RefreshToken+`"}`))
	require.NoError(t, err)
	_ = replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	require.NoError(t, c.Logout(ctx))
	_, ok, _ = store.Load()
	assert.False(t, ok)

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
}

func TestEndToEnd_CookieMode(t *testing.T) {
	srv, clk := newServer(t, authapi.TransportCookie)
	ctx := context.Background()

	store := client.NewMemoryStore()
	c, err := client.New(client.Config{BaseURL: srv.URL, CookieMode: true}, store)
	require.NoError(t, err)

	reg, err := c.Register(ctx, "cookie@x.com", "secret1")
	require.NoError(t, err)
	assert.Empty(t, reg.RefreshToken)

	clk.Advance(31 * time.Minute)
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, me.UserID)

	held, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, held.RefreshCookie)

	require.NoError(t, c.LogoutAll(ctx))
	_, ok, _ = store.Load()
	assert.False(t, ok)

	// The server revoked the cookie too; putting it back does not help.
	require.NoError(t, store.Save(held))
	_, err = c.Refresh(ctx)
	assert.ErrorIs(t, err, client.ErrRefreshFailed)
}

func TestEndToEnd_CookieModeAcrossProcesses(t *testing.T) {
	srv, clk := newServer(t, authapi.TransportCookie)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	newClient := func() *client.Client {
		c, err := client.New(client.Config{BaseURL: srv.URL, CookieMode: true}, client.NewFileStore(path))
		require.NoError(t, err)
		return c
	}

	reg, err := newClient().Register(ctx, "cli@x.com", "secret1")
	require.NoError(t, err)
	saved, ok, err := client.NewFileStore(path).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, saved.RefreshCookie)

	clk.Advance(31 * time.Minute)

	me, err := newClient().Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, me.UserID)

	cur, ok, err := client.NewFileStore(path).Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, saved.RefreshCookie, cur.RefreshCookie)

	require.NoError(t, newClient().Logout(ctx))

	req, err := http.NewRequest(http.MethodPost, srv.URL+authv1.PathRefresh, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: authv1.DefaultRefreshCookieName, Value: cur.RefreshCookie})
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "logout must revoke the persisted cookie")
}

func TestEndToEnd_TransportMismatchFailsFast(t *testing.T) {
	srv, _ := newServer(t, authapi.TransportCookie)
	ctx := context.Background()

	store := client.NewMemoryStore()
	c, err := client.New(client.Config{BaseURL: srv.URL}, store)
	require.NoError(t, err)

	_, err = c.Register(ctx, "mismatch@x.com", "secret1")
	require.ErrorIs(t, err, client.ErrNoRefreshToken)
	assert.Contains(t, err.Error(), "cookie transport")

	_, ok, _ := store.Load()
	assert.False(t, ok)
}

func TestEndToEnd_DuplicateRegistration(t *testing.T) {
	srv, _ := newServer(t, authapi.TransportBody)
	ctx := context.Background()

	c, err := client.New(client.Config{BaseURL: srv.URL}, client.NewMemoryStore())
	require.NoError(t, err)

	_, err = c.Register(ctx, "dup@x.com", "secret1")
	require.NoError(t, err)
	_, err = c.Register(ctx, "dup@x.com", "secret1")
	assert.ErrorIs(t, err, client.ErrConflict)

	_, err = c.Login(ctx, "dup@x.com", "wrong-pass")
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
}
