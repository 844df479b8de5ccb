// Package identity holds the user record shared by the session stores and the
// HTTP layer, plus the email canonicalization policy and typed store errors.
package identity
