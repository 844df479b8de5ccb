package password

import (
	"strings"
	"unicode/utf8"
)

// Validate checks password policy. Length counts runes, not bytes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength || strings.TrimSpace(password) == "" {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && looksVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

var trivialPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "123456": {}, "1234567": {},
	"12345678": {}, "123456789": {}, "qwerty": {}, "qwerty123": {}, "111111": {}, "secret": {},
}

// looksVeryWeak catches a single repeated character and a short list of common passwords.
func looksVeryWeak(pw string) bool {
	s := strings.ToLower(strings.TrimSpace(pw))
	if _, ok := trivialPasswords[s]; ok {
		return true
	}
	first, _ := utf8.DecodeRuneInString(s)
	return strings.Trim(s, string(first)) == ""
}
