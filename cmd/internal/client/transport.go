package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pm_client_refresh_total",
	Help: "Client-side refresh attempts by result.",
}, []string{"result"})

// RefreshFunc exchanges the stored credentials for a new Session and persists it.
type RefreshFunc func(ctx context.Context) (Session, error)

// Transport is an http.RoundTripper that attaches the stored access token and
// recovers from a 401 with one gated refresh and one retry.
type Transport struct {
	Base    http.RoundTripper
	Store   TokenStore
	Gate    *RefreshGate
	Refresh RefreshFunc
	Log     *slog.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) log() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

func (t *Transport) currentAccessToken() string {
	s, ok, err := t.Store.Load()
	if err != nil || !ok {
		return ""
	}
	return s.AccessToken
}

func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return out
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	used := t.currentAccessToken()

	res, err := t.base().RoundTrip(withBearer(req, used))
	if err != nil {
		// Transport failures are not authorization failures.
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}

	// A consumed body can only be replayed through GetBody.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return res, nil
	}

	ctx := req.Context()
	next := t.currentAccessToken()
	if used != "" && next == "" {
		// The session this request carried was cleared meanwhile, most likely by a
		// rejected refresh. Starting another one would hit the server again.
		return res, nil
	}
	if next == "" || next == used {
		sess, rerr := t.Gate.Do(ctx, func(rctx context.Context) (Session, error) {
			cur, ok, _ := t.Store.Load()
			// Another caller may have refreshed between our 401 and taking the gate.
			if ok && cur.AccessToken != "" && cur.AccessToken != used {
				return cur, nil
			}
			if used != "" && (!ok || cur.AccessToken == "") {
				return Session{}, ErrNoRefreshToken
			}
			return t.Refresh(rctx)
		})
		if rerr != nil {
			t.onRefreshFailure(rerr)
			return res, nil
		}
		next = sess.AccessToken
	}

	retry := withBearer(req, next)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return res, nil
		}
		retry.Body = body
	}

	drainAndClose(res.Body)
	return t.base().RoundTrip(retry)
}

// onRefreshFailure clears the session when the server refused the refresh.
// Network and timeout failures keep it so a later call can try again.
func (t *Transport) onRefreshFailure(err error) {
	if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrNoRefreshToken) {
		if cerr := t.Store.Clear(); cerr != nil {
			t.log().Error("client.session.clear.fail", "err", cerr)
		}
		t.log().Info("client.refresh.rejected", "err", err)
		return
	}
	t.log().Warn("client.refresh.error", "err", err)
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64<<10))
	_ = rc.Close()
}
