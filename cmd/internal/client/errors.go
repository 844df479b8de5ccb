package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	authv1 "projectmanager/shared/contracts/auth/v1"
)

var (
	// ErrUnauthenticated means the server refused the caller's credentials.
	ErrUnauthenticated = errors.New("client: unauthenticated")
	// ErrNoRefreshToken means a refresh was needed but no refresh token or cookie is held.
	ErrNoRefreshToken = errors.New("client: no refresh token")
	// ErrRefreshFailed means the server rejected the refresh token.
	ErrRefreshFailed = errors.New("client: refresh failed")
	// ErrConflict is returned for 409 responses (email already registered).
	ErrConflict = errors.New("client: conflict")
)

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// readAPIError consumes and closes res.Body.
func readAPIError(res *http.Response) error {
	defer func() { _ = res.Body.Close() }()

	out := &APIError{Status: res.StatusCode}
	var body authv1.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&body); err == nil {
		out.Code = body.Error.Code
		out.Message = body.Error.Message
	}
	return out
}
