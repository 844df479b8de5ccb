package identity

import "time"

// User is the security principal. Email is stored as normalized by EmailPolicy.
// The digest and salt come from security/password and never leave the server.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	PasswordSalt string
	CreatedAt    time.Time
}
