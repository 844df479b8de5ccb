package identity

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxEmailLength follows RFC 5321's path limit.
const MaxEmailLength = 254

var validate = validator.New(validator.WithRequiredStructEnabled())

// EmailPolicy decides how emails are canonicalized before storage and lookup.
//
// The default keeps the exact casing a user typed, so "A@x.com" and "a@x.com"
// are distinct accounts. CaseInsensitive folds to lower case on both paths.
type EmailPolicy struct {
	CaseInsensitive bool
}

// Normalize trims surrounding whitespace and applies the case policy.
func (p EmailPolicy) Normalize(s string) string {
	s = strings.TrimSpace(s)
	if p.CaseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}

// ValidateEmail checks presence, syntax and length of a normalized email.
func ValidateEmail(s string) error {
	if err := validate.Var(s, "required,email,max=254"); err != nil {
		return OpError{Op: "identity.ValidateEmail", Kind: ErrInvalidInput, Msg: "email is not valid"}
	}
	return nil
}
