package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	authv1 "projectmanager/shared/contracts/auth/v1"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// CookieMode relies on the server's HttpOnly refresh cookie instead of a stored refresh token.
	CookieMode bool
	// RefreshCookieName must match the server's cookie name. Default "rt".
	RefreshCookieName string
	RefreshTimeout    time.Duration
	// HTTPClient is the underlying client; its Transport is wrapped, never replaced.
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Client is a typed API client whose protected calls go through the session guard.
type Client struct {
	base       string
	cookies    bool
	cookieName string
	refreshURL *url.URL
	store      TokenStore
	gate    *RefreshGate
	log     *slog.Logger

	raw     *http.Client // auth endpoints, no guard
	guarded *http.Client // protected endpoints
}

// New builds a Client over store.
func New(cfg Config, store TokenStore) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: empty base URL")
	}
	if store == nil {
		return nil, errors.New("client: nil token store")
	}
	refreshURL, err := url.Parse(base + authv1.PathRefresh)
	if err != nil {
		return nil, fmt.Errorf("client: base URL: %w", err)
	}
	cookieName := strings.TrimSpace(cfg.RefreshCookieName)
	if cookieName == "" {
		cookieName = authv1.DefaultRefreshCookieName
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	raw := &http.Client{Timeout: 30 * time.Second}
	if cfg.HTTPClient != nil {
		cp := *cfg.HTTPClient
		raw = &cp
	}
	if cfg.CookieMode && raw.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		raw.Jar = jar
	}

	c := &Client{
		base:       base,
		cookies:    cfg.CookieMode,
		cookieName: cookieName,
		refreshURL: refreshURL,
		store:      store,
		gate:       NewRefreshGate(cfg.RefreshTimeout),
		log:        log,
		raw:        raw,
	}

	guarded := *raw
	guarded.Transport = &Transport{
		Base:    raw.Transport,
		Store:   store,
		Gate:    c.gate,
		Refresh: c.refresh,
		Log:     log,
	}
	c.guarded = &guarded
	return c, nil
}

// HTTPClient returns the guarded client for calls to other protected endpoints.
func (c *Client) HTTPClient() *http.Client { return c.guarded }

// Session returns the stored session, if any.
func (c *Client) Session() (Session, bool, error) { return c.store.Load() }

func (c *Client) Register(ctx context.Context, email, password string) (Session, error) {
	return c.credentials(ctx, authv1.PathRegister, email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.credentials(ctx, authv1.PathLogin, email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (Session, error) {
	res, err := c.post(ctx, c.raw, path, authv1.CredentialsRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return c.saveSession(res)
}

// checkTransport rejects a session the client could never refresh.
func (c *Client) checkTransport(sess Session) error {
	switch {
	case c.cookies && sess.RefreshCookie == "":
		return fmt.Errorf("%w: server set no %q cookie; is it using body transport?", ErrNoRefreshToken, c.cookieName)
	case !c.cookies && sess.RefreshToken == "":
		return fmt.Errorf("%w: server returned none in the body; is it using cookie transport?", ErrNoRefreshToken)
	}
	return nil
}

// restoreRefreshCookie puts a persisted refresh cookie back into the jar when
// the jar has none, e.g. in a new process sharing a FileStore.
func (c *Client) restoreRefreshCookie(value string) {
	if value == "" || c.jarRefreshCookie() != "" {
		return
	}
	c.raw.Jar.SetCookies(c.refreshURL, []*http.Cookie{{
		Name:     c.cookieName,
		Value:    value,
		Path:     path.Dir(c.refreshURL.Path),
		HttpOnly: true,
	}})
}

func (c *Client) jarRefreshCookie() string {
	for _, ck := range c.raw.Jar.Cookies(c.refreshURL) {
		if ck.Name == c.cookieName {
			return ck.Value
		}
	}
	return ""
}

// Refresh rotates the session now, sharing the gate with guarded calls.
func (c *Client) Refresh(ctx context.Context) (Session, error) {
	sess, err := c.gate.Do(ctx, c.refresh)
	if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrNoRefreshToken) {
		_ = c.store.Clear()
	}
	return sess, err
}

func (c *Client) refresh(ctx context.Context) (Session, error) {
	cur, ok, err := c.store.Load()
	if err != nil {
		return Session{}, err
	}
	var body any
	if c.cookies {
		if ok {
			c.restoreRefreshCookie(cur.RefreshCookie)
		}
		if c.jarRefreshCookie() == "" {
			refreshTotal.WithLabelValues("no_token").Inc()
			return Session{}, ErrNoRefreshToken
		}
	} else {
		if !ok || cur.RefreshToken == "" {
			refreshTotal.WithLabelValues("no_token").Inc()
			return Session{}, ErrNoRefreshToken
		}
		body = authv1.RefreshRequest{RefreshToken: cur.RefreshToken}
	}

	res, err := c.post(ctx, c.raw, authv1.PathRefresh, body)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return Session{}, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		apiErr := readAPIError(res)
		refreshTotal.WithLabelValues("rejected").Inc()
		return Session{}, fmt.Errorf("%w: %v", ErrRefreshFailed, apiErr)
	}
	sess, err := c.saveSession(res)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return Session{}, err
	}
	refreshTotal.WithLabelValues("success").Inc()
	c.log.Debug("client.refresh.ok", "user_id", sess.UserID)
	return sess, nil
}

// Logout revokes the current refresh token and clears local state, even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var body any
	if cur, ok, _ := c.store.Load(); ok {
		if c.cookies {
			c.restoreRefreshCookie(cur.RefreshCookie)
		} else if cur.RefreshToken != "" {
			body = authv1.RefreshRequest{RefreshToken: cur.RefreshToken}
		}
	}
	defer func() { _ = c.store.Clear() }()

	res, err := c.post(ctx, c.raw, authv1.PathLogout, body)
	if err != nil {
		return err
	}
	return expectNoContent(res)
}

// LogoutAll revokes every session of the current user and clears local state.
func (c *Client) LogoutAll(ctx context.Context) error {
	res, err := c.post(ctx, c.guarded, authv1.PathLogoutAll, nil)
	if err != nil {
		return err
	}
	if err := expectNoContent(res); err != nil {
		return err
	}
	return c.store.Clear()
}

// Me returns the identity behind the current access token.
func (c *Client) Me(ctx context.Context) (authv1.MeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+authv1.PathMe, nil)
	if err != nil {
		return authv1.MeResponse{}, err
	}
	res, err := c.guarded.Do(req)
	if err != nil {
		return authv1.MeResponse{}, err
	}
	if res.StatusCode != http.StatusOK {
		return authv1.MeResponse{}, readAPIError(res)
	}
	defer func() { _ = res.Body.Close() }()

	var out authv1.MeResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return authv1.MeResponse{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, body any) (*http.Response, error) {
	var buf []byte
	if body != nil {
		var err error
		if buf, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}
	// bytes.Reader lets NewRequest set GetBody so the guard can replay it.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return hc.Do(req)
}

func (c *Client) saveSession(res *http.Response) (Session, error) {
	if res.StatusCode != http.StatusOK {
		return Session{}, readAPIError(res)
	}
	defer func() { _ = res.Body.Close() }()

	var out authv1.SessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Session{}, err
	}
	sess := sessionFromResponse(out)
	if c.cookies {
		for _, ck := range res.Cookies() {
			if ck.Name == c.cookieName && ck.Value != "" && ck.MaxAge >= 0 {
				sess.RefreshCookie = ck.Value
			}
		}
	}
	if err := c.checkTransport(sess); err != nil {
		return Session{}, err
	}
	if err := c.store.Save(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func expectNoContent(res *http.Response) error {
	if res.StatusCode == http.StatusNoContent || res.StatusCode == http.StatusOK {
		drainAndClose(res.Body)
		return nil
	}
	return readAPIError(res)
}
