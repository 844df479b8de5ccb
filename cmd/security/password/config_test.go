package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"PM_PASSWORD_ALGORITHM",
		"PM_PASSWORD_MIN_LEN",
		"PM_PASSWORD_MAX_LEN",
		"PM_PASSWORD_REJECT_VERY_WEAK",
		"PM_PASSWORD_SALT_LEN",
		"PM_PBKDF2_ITERATIONS",
		"PM_ARGON2_MEMORY_KIB",
		"PM_ARGON2_ITERATIONS",
		"PM_ARGON2_PARALLELISM",
	} {
		t.Setenv(k, "")
		unsetEnv(t, k)
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, AlgPBKDF2SHA256, cfg.Algorithm)
	assert.Equal(t, 6, cfg.Policy.MinLength)
	assert.Equal(t, 128, cfg.Policy.MaxLength)
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("PM_PASSWORD_ALGORITHM", "Argon2id")
	t.Setenv("PM_PASSWORD_MIN_LEN", "10")
	t.Setenv("PM_PASSWORD_MAX_LEN", "200")
	t.Setenv("PM_PASSWORD_REJECT_VERY_WEAK", "yes")
	t.Setenv("PM_PASSWORD_SALT_LEN", "24")
	t.Setenv("PM_PBKDF2_ITERATIONS", "210000")
	t.Setenv("PM_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("PM_ARGON2_ITERATIONS", "4")
	t.Setenv("PM_ARGON2_PARALLELISM", "2")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, AlgArgon2id, cfg.Algorithm)
	assert.Equal(t, Policy{MinLength: 10, MaxLength: 200, RejectVeryWeak: true}, cfg.Policy)
	assert.Equal(t, 24, cfg.SaltLength)
	assert.Equal(t, 210000, cfg.PBKDF2.Iterations)
	assert.Equal(t, uint32(32768), cfg.Argon2id.MemoryKiB)
	assert.Equal(t, uint32(4), cfg.Argon2id.Iterations)
	assert.Equal(t, uint8(2), cfg.Argon2id.Parallelism)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"PM_PASSWORD_ALGORITHM": "md5",
		"PM_PBKDF2_ITERATIONS":  "1000",
		"PM_PASSWORD_MIN_LEN":   "zero",
		"PM_PASSWORD_SALT_LEN":  "4",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("PM_PASSWORD_MIN_LEN", "20")
	t.Setenv("PM_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	assert.Error(t, err)
}
