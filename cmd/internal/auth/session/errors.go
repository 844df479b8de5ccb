package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailAlreadyRegistered is returned by Register when the email is taken.
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOrExpiredToken is returned by Refresh for unknown, revoked and expired tokens alike.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")

	// ErrUnauthenticated is returned when an access token is missing or fails verification.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Access token verification failures. All of them satisfy errors.Is(err, ErrUnauthenticated).
var (
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUnauthenticated)
	ErrTokenExpired     = fmt.Errorf("%w: token expired or not yet valid", ErrUnauthenticated)
	ErrWrongAudience    = fmt.Errorf("%w: wrong audience", ErrUnauthenticated)
	ErrWrongIssuer      = fmt.Errorf("%w: wrong issuer", ErrUnauthenticated)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
)

// ValidationError reports registration input the service refused.
// Field is "email" or "password".
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string { return fmt.Sprintf("invalid %s: %v", e.Field, e.Err) }

func (e ValidationError) Unwrap() error { return e.Err }
