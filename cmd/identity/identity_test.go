package identity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailPolicy_Normalize(t *testing.T) {
	exact := EmailPolicy{}
	folded := EmailPolicy{CaseInsensitive: true}

	assert.Equal(t, "A@x.com", exact.Normalize("  A@x.com\t"))
	assert.Equal(t, "a@x.com", folded.Normalize("  A@X.com "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@x.com"))

	for _, bad := range []string{"", "no-at-sign", "a@", strings.Repeat("a", 250) + "@x.com"} {
		err := ValidateEmail(bad)
		require.Error(t, err, bad)
		assert.True(t, IsInvalidInput(err))
	}
}

func TestErrorKinds(t *testing.T) {
	c := ConflictError{Op: "op", Field: "email"}
	assert.True(t, IsConflict(c))
	assert.True(t, IsConflict(c, "email"))
	assert.False(t, IsConflict(c, "refresh_token"))
	assert.True(t, errors.Is(c, ErrConflict))
	assert.Equal(t, "op: conflict: email", c.Error())

	nf := NotFoundError{Op: "op", Resource: "user"}
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConflict(nf))

	na := OpError{Op: "op", Kind: ErrNotActive}
	assert.True(t, IsNotActive(na))
	assert.Equal(t, "op: not_active", na.Error())
}

func TestNewULID_TimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := NewULID(now)
	require.NoError(t, err)
	assert.Len(t, id, 26)

	got, err := ULIDTime(id)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))

	other, err := NewULID(now)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
