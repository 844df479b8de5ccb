package identity

import (
	"time"

	"projectmanager/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string).
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// ULIDTime returns the creation time embedded in a ULID id.
func ULIDTime(id string) (time.Time, error) {
	return ids.Time(id)
}
