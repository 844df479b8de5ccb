// Package authv1 is the wire contract between the auth HTTP API and its clients.
package authv1

import "time"

// Endpoint paths.
const (
	PathRegister  = "/auth/register"
	PathLogin     = "/auth/login"
	PathRefresh   = "/auth/refresh"
	PathLogout    = "/auth/logout"
	PathLogoutAll = "/auth/logout-all"
	PathMe        = "/me"
)

// DefaultRefreshCookieName is the cookie carrying the refresh token in cookie transport mode.
const DefaultRefreshCookieName = "rt"

// Error codes carried in ErrorBody.Code.
const (
	CodeInvalidJSON            = "invalid_json"
	CodeInvalidRequest         = "invalid_request"
	CodeWeakPassword           = "weak_password"
	CodeEmailAlreadyRegistered = "email_already_registered"
	CodeInvalidCredentials     = "invalid_credentials"
	CodeInvalidOrExpiredToken  = "invalid_or_expired_token"
	CodeUnauthorized           = "unauthorized"
	CodeServerError            = "server_error"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the optional body of refresh and logout in body transport mode.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SessionResponse is returned by register, login and refresh.
// RefreshToken and RefreshExpiryUtc are omitted in cookie transport mode.
type SessionResponse struct {
	AccessToken      string     `json:"accessToken"`
	AccessExpiryUtc  time.Time  `json:"accessExpiryUtc"`
	Email            string     `json:"email"`
	UserID           string     `json:"userId"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	RefreshExpiryUtc *time.Time `json:"refreshExpiryUtc,omitempty"`
}

// MeResponse describes the caller of GET /me.
type MeResponse struct {
	UserID          string    `json:"userId"`
	Email           string    `json:"email"`
	AccessExpiryUtc time.Time `json:"accessExpiryUtc"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
