package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/cmd/internal/auth/session"
	"projectmanager/cmd/security/password"
	authv1 "projectmanager/shared/contracts/auth/v1"
)

var apiBase = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

type apiEnv struct {
	mux *http.ServeMux
	now *time.Time
}

func newAPIEnv(t *testing.T, transport string) apiEnv {
	t.Helper()

	st, err := session.OpenSQLite("file:pmapi_" + ulid.Make().String() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	scfg := session.DefaultConfig()
	scfg.Secret = strings.Repeat("k", session.MinSecretBytes)
	codec, err := session.NewAccessTokenCodec(scfg)
	require.NoError(t, err)

	pc := password.DefaultConfig()
	pc.PBKDF2.Iterations = 1000
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := session.NewService(scfg, st, codec, session.WithPasswordConfig(pc), session.WithLogger(log))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RefreshTransport = transport

	now := apiBase
	h, err := NewHandler(log, svc, cfg, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	return apiEnv{mux: mux, now: &now}
}

func (e apiEnv) do(t *testing.T, method, path string, body any, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mods {
		m(req)
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) authv1.SessionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out authv1.SessionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) authv1.ErrorBody {
	t.Helper()
	var out authv1.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out.Error
}

func refreshCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == authv1.DefaultRefreshCookieName {
			return c
		}
	}
	return nil
}

func creds(email, pw string) authv1.CredentialsRequest {
	return authv1.CredentialsRequest{Email: email, Password: pw}
}

func TestBodyTransport_FullLifecycle(t *testing.T) {
	e := newAPIEnv(t, TransportBody)

	reg := decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("a@x.com", "secret1")))
	assert.Equal(t, "a@x.com", reg.Email)
	assert.NotEmpty(t, reg.UserID)
	assert.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	require.NotNil(t, reg.RefreshExpiryUtc)
	assert.Equal(t, apiBase.Add(30*time.Minute), reg.AccessExpiryUtc)

	me := e.do(t, http.MethodGet, authv1.PathMe, nil, bearer(reg.AccessToken))
	require.Equal(t, http.StatusOK, me.Code)
	var meOut authv1.MeResponse
	require.NoError(t, json.NewDecoder(me.Body).Decode(&meOut))
	assert.Equal(t, reg.UserID, meOut.UserID)

	rotated := decodeSession(t, e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: reg.RefreshToken}))
	assert.NotEqual(t, reg.RefreshToken, rotated.RefreshToken)

	stale := e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, stale.Code)
	assert.Equal(t, authv1.CodeInvalidOrExpiredToken, decodeError(t, stale).Code)

	out := e.do(t, http.MethodPost, authv1.PathLogout, authv1.RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, out.Code)

	after := e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, after.Code)

	again := e.do(t, http.MethodPost, authv1.PathLogout, authv1.RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, again.Code)

	login := decodeSession(t, e.do(t, http.MethodPost, authv1.PathLogin, creds("a@x.com", "secret1")))
	assert.Equal(t, reg.UserID, login.UserID)
}

func TestCookieTransport_RefreshTokenNeverInBody(t *testing.T) {
	e := newAPIEnv(t, TransportCookie)

	rr := e.do(t, http.MethodPost, authv1.PathRegister, creds("c@x.com", "secret1"))
	reg := decodeSession(t, rr)
	assert.Empty(t, reg.RefreshToken)
	assert.Nil(t, reg.RefreshExpiryUtc)

	c := refreshCookie(rr)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/auth", c.Path)
	assert.NotEmpty(t, c.Value)
	assert.NotContains(t, rr.Body.String(), c.Value)

	rr2 := e.do(t, http.MethodPost, authv1.PathRefresh, nil, withCookie(c))
	decodeSession(t, rr2)
	c2 := refreshCookie(rr2)
	require.NotNil(t, c2)
	assert.NotEqual(t, c.Value, c2.Value)

	// The rotated-away cookie is rejected and cleared.
	rr3 := e.do(t, http.MethodPost, authv1.PathRefresh, nil, withCookie(c))
	assert.Equal(t, http.StatusUnauthorized, rr3.Code)
	if cleared := refreshCookie(rr3); assert.NotNil(t, cleared) {
		assert.Less(t, cleared.MaxAge, 0)
	}

	rr4 := e.do(t, http.MethodPost, authv1.PathLogout, nil, withCookie(c2))
	assert.Equal(t, http.StatusNoContent, rr4.Code)
	if cleared := refreshCookie(rr4); assert.NotNil(t, cleared) {
		assert.Empty(t, cleared.Value)
		assert.Less(t, cleared.MaxAge, 0)
	}

	rr5 := e.do(t, http.MethodPost, authv1.PathRefresh, nil, withCookie(c2))
	assert.Equal(t, http.StatusUnauthorized, rr5.Code)
}

func TestCookieTakesPrecedenceOverBody(t *testing.T) {
	e := newAPIEnv(t, TransportBody)

	rr := e.do(t, http.MethodPost, authv1.PathRegister, creds("p@x.com", "secret1"))
	reg := decodeSession(t, rr)

	c := &http.Cookie{Name: authv1.DefaultRefreshCookieName, Value: reg.RefreshToken}
	out := e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: "bogus"}, withCookie(c))
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestRegister_Errors(t *testing.T) {
	e := newAPIEnv(t, TransportBody)
	decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("dup@x.com", "secret1")))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate", creds("dup@x.com", "another1"), http.StatusConflict, authv1.CodeEmailAlreadyRegistered},
		{"short password", creds("new@x.com", "abc"), http.StatusBadRequest, authv1.CodeWeakPassword},
		{"missing password", creds("new@x.com", ""), http.StatusBadRequest, authv1.CodeWeakPassword},
		{"bad email", creds("not-an-email", "secret1"), http.StatusBadRequest, authv1.CodeInvalidRequest},
		{"unknown field", `{"email":"a@x.com","password":"secret1","admin":true}`, http.StatusBadRequest, authv1.CodeInvalidJSON},
		{"trailing data", `{"email":"a@x.com","password":"secret1"}{}`, http.StatusBadRequest, authv1.CodeInvalidJSON},
		{"empty body", nil, http.StatusBadRequest, authv1.CodeInvalidJSON},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, authv1.PathRegister, tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rr).Code)
		})
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	e := newAPIEnv(t, TransportBody)
	decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("l@x.com", "secret1")))

	wrongPw := e.do(t, http.MethodPost, authv1.PathLogin, creds("l@x.com", "wrong-pass"))
	unknown := e.do(t, http.MethodPost, authv1.PathLogin, creds("nobody@x.com", "secret1"))

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestRefresh_MissingToken(t *testing.T) {
	e := newAPIEnv(t, TransportBody)

	rr := e.do(t, http.MethodPost, authv1.PathRefresh, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, authv1.CodeInvalidOrExpiredToken, decodeError(t, rr).Code)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	e := newAPIEnv(t, TransportBody)
	reg := decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("exp@x.com", "secret1")))

	*e.now = apiBase.Add(8 * 24 * time.Hour)
	rr := e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutAll(t *testing.T) {
	e := newAPIEnv(t, TransportBody)
	first := decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("all@x.com", "secret1")))
	second := decodeSession(t, e.do(t, http.MethodPost, authv1.PathLogin, creds("all@x.com", "secret1")))

	anon := e.do(t, http.MethodPost, authv1.PathLogoutAll, nil)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.Contains(t, anon.Header().Get("WWW-Authenticate"), "Bearer")

	rr := e.do(t, http.MethodPost, authv1.PathLogoutAll, nil, bearer(second.AccessToken))
	require.Equal(t, http.StatusNoContent, rr.Code)

	for _, tok := range []string{first.RefreshToken, second.RefreshToken} {
		out := e.do(t, http.MethodPost, authv1.PathRefresh, authv1.RefreshRequest{RefreshToken: tok})
		assert.Equal(t, http.StatusUnauthorized, out.Code)
	}
}

func TestMe_RejectsBadTokens(t *testing.T) {
	e := newAPIEnv(t, TransportBody)
	reg := decodeSession(t, e.do(t, http.MethodPost, authv1.PathRegister, creds("me@x.com", "secret1")))

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, authv1.PathMe, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, authv1.PathMe, nil, bearer(reg.AccessToken+"x")).Code)

	*e.now = apiBase.Add(31 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, authv1.PathMe, nil, bearer(reg.AccessToken)).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newAPIEnv(t, TransportBody)

	for _, p := range []string{authv1.PathRegister, authv1.PathLogin, authv1.PathRefresh, authv1.PathLogout, authv1.PathLogoutAll} {
		assert.Equal(t, http.StatusMethodNotAllowed, e.do(t, http.MethodGet, p, nil).Code, p)
	}
	assert.Equal(t, http.StatusMethodNotAllowed, e.do(t, http.MethodPost, authv1.PathMe, nil).Code)
}

func TestNewHandler_RejectsBadConfig(t *testing.T) {
	_, err := NewHandler(nil, nil, DefaultConfig())
	assert.Error(t, err)
}
