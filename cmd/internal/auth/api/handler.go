package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"projectmanager/cmd/internal/auth/session"
	authv1 "projectmanager/shared/contracts/auth/v1"

	"github.com/go-playground/validator/v10"
)

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
	validate *validator.Validate
	now      func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the wall clock used for token issuance and checks.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, sessions *session.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.RefreshTransport != TransportCookie && cfg.RefreshTransport != TransportBody {
		return nil, errors.New("auth: unsupported refresh transport")
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = authv1.DefaultRefreshCookieName
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc(authv1.PathRegister, h.handleRegister)
	mux.HandleFunc(authv1.PathLogin, h.handleLogin)
	mux.HandleFunc(authv1.PathRefresh, h.handleRefresh)
	mux.HandleFunc(authv1.PathLogout, h.handleLogout)
	mux.HandleFunc(authv1.PathLogoutAll, h.handleLogoutAll)
	mux.HandleFunc(authv1.PathMe, h.handleMe)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req authv1.CredentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, authv1.CodeInvalidJSON, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		code, msg := validationFailure(err)
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	ctx := r.Context()
	dev := deviceContext(r, h.cfg.TrustProxy)

	issued, err := h.sessions.Register(ctx, h.now(), req.Email, req.Password, dev)
	if err != nil {
		var vErr session.ValidationError
		switch {
		case errors.Is(err, session.ErrEmailAlreadyRegistered):
			h.audit(ctx, "register", "conflict", "ip", ipAttr(dev.IP))
			writeError(w, http.StatusConflict, authv1.CodeEmailAlreadyRegistered, "email already registered")
		case errors.As(err, &vErr):
			h.audit(ctx, "register", "invalid", "field", vErr.Field)
			if vErr.Field == "password" {
				writeError(w, http.StatusBadRequest, authv1.CodeWeakPassword, vErr.Err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, authv1.CodeInvalidRequest, vErr.Error())
		default:
			h.audit(ctx, "register", "error", "err", err)
			writeError(w, http.StatusInternalServerError, authv1.CodeServerError, "internal error")
		}
		return
	}

	h.audit(ctx, "register", "success", "user_id", issued.UserID, "ip", ipAttr(dev.IP))
	h.writeSession(w, issued)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req authv1.CredentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, authv1.CodeInvalidJSON, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, authv1.CodeInvalidRequest, "email and password are required")
		return
	}

	ctx := r.Context()
	dev := deviceContext(r, h.cfg.TrustProxy)

	issued, err := h.sessions.Login(ctx, h.now(), req.Email, req.Password, dev)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.audit(ctx, "login", "fail", "ip", ipAttr(dev.IP))
			writeUnauthorized(w, authv1.CodeInvalidCredentials, "invalid email or password")
			return
		}
		h.audit(ctx, "login", "error", "err", err)
		writeError(w, http.StatusInternalServerError, authv1.CodeServerError, "internal error")
		return
	}

	h.audit(ctx, "login", "success", "user_id", issued.UserID, "ip", ipAttr(dev.IP))
	h.writeSession(w, issued)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req authv1.RefreshRequest
	if err := decodeOptionalJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, authv1.CodeInvalidJSON, "invalid request body")
		return
	}
	presented := h.presentedRefreshToken(r, req.RefreshToken)
	if presented == "" {
		writeUnauthorized(w, authv1.CodeInvalidOrExpiredToken, "refresh token is required")
		return
	}

	ctx := r.Context()
	dev := deviceContext(r, h.cfg.TrustProxy)

	issued, err := h.sessions.Refresh(ctx, h.now(), presented, dev)
	if err != nil {
		if errors.Is(err, session.ErrInvalidOrExpiredToken) {
			h.audit(ctx, "refresh", "fail", "ip", ipAttr(dev.IP))
			if h.cfg.CookieMode() {
				h.expireRefreshCookie(w)
			}
			writeUnauthorized(w, authv1.CodeInvalidOrExpiredToken, "invalid or expired refresh token")
			return
		}
		h.audit(ctx, "refresh", "error", "err", err)
		writeError(w, http.StatusInternalServerError, authv1.CodeServerError, "internal error")
		return
	}

	h.audit(ctx, "refresh", "success", "user_id", issued.UserID, "ip", ipAttr(dev.IP))
	h.writeSession(w, issued)
}

// handleLogout always answers 204 so callers learn nothing about the token.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req authv1.RefreshRequest
	_ = decodeOptionalJSON(w, r, h.cfg.MaxBodyBytes, &req)
	presented := h.presentedRefreshToken(r, req.RefreshToken)

	ctx := r.Context()
	if presented != "" {
		if err := h.sessions.Logout(ctx, h.now(), presented); err != nil {
			h.audit(ctx, "logout", "error", "err", err)
		} else {
			h.audit(ctx, "logout", "success")
		}
	}

	h.expireRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.sessions.LogoutAll(ctx, h.now(), claims.UserID); err != nil {
		h.audit(ctx, "logout_all", "error", "user_id", claims.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, authv1.CodeServerError, "internal error")
		return
	}

	h.audit(ctx, "logout_all", "success", "user_id", claims.UserID)
	h.expireRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authv1.MeResponse{
		UserID:          claims.UserID,
		Email:           claims.Email,
		AccessExpiryUtc: claims.ExpiresAt.UTC(),
	})
}

// ---- helpers ----

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.AccessClaims, bool) {
	tok := bearerToken(r)
	if tok == "" {
		writeUnauthorized(w, authv1.CodeUnauthorized, "missing bearer token")
		return session.AccessClaims{}, false
	}
	claims, err := h.sessions.ValidateAccessToken(tok, h.now())
	if err != nil {
		h.log.Debug("auth.access.reject", "err", err)
		writeUnauthorized(w, authv1.CodeUnauthorized, "invalid token")
		return session.AccessClaims{}, false
	}
	return claims, true
}

// writeSession answers 200 with the issued tokens. In cookie mode the refresh
// token goes into the HttpOnly cookie and never into the body.
func (h *Handler) writeSession(w http.ResponseWriter, issued session.Issued) {
	resp := toSessionResponse(issued)
	if h.cfg.CookieMode() {
		h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
		resp.RefreshToken = ""
		resp.RefreshExpiryUtc = nil
	}
	writeJSON(w, http.StatusOK, resp)
}
