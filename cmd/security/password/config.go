package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Supported digest algorithms.
const (
	AlgPBKDF2SHA256 = "pbkdf2-sha256"
	AlgArgon2id     = "argon2id"
)

// DefaultPBKDF2Iterations is also the lowest cost accepted from the environment.
const DefaultPBKDF2Iterations = 100_000

// PBKDF2Params controls PBKDF2-SHA256 cost.
type PBKDF2Params struct {
	Iterations int
	KeyLength  int
}

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// Policy controls password validation.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Algorithm  string
	SaltLength int
	PBKDF2     PBKDF2Params
	Argon2id   Argon2idParams
	Policy     Policy
}

// DefaultConfig returns PBKDF2-SHA256 (100k iterations, 32-byte key, 16-byte salt)
// and a 6..128 character policy.
func DefaultConfig() Config {
	// Clamp to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm:  AlgPBKDF2SHA256,
		SaltLength: 16,
		PBKDF2: PBKDF2Params{
			Iterations: DefaultPBKDF2Iterations,
			KeyLength:  32,
		},
		Argon2id: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // reasonable default for interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 6,
			MaxLength: 128,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - PM_PASSWORD_ALGORITHM (pbkdf2-sha256 | argon2id)
// - PM_PASSWORD_MIN_LEN
// - PM_PASSWORD_MAX_LEN
// - PM_PASSWORD_REJECT_VERY_WEAK (true/false)
// - PM_PASSWORD_SALT_LEN
// - PM_PBKDF2_ITERATIONS
// - PM_ARGON2_MEMORY_KIB
// - PM_ARGON2_ITERATIONS
// - PM_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("PM_PASSWORD_ALGORITHM"); ok {
		switch alg := strings.ToLower(strings.TrimSpace(v)); alg {
		case AlgPBKDF2SHA256, AlgArgon2id:
			cfg.Algorithm = alg
		default:
			return Config{}, fmt.Errorf("PM_PASSWORD_ALGORITHM: %w", ErrUnsupportedAlgorithm)
		}
	}

	if v, ok := os.LookupEnv("PM_PASSWORD_MIN_LEN"); ok {
		n, err := atoiRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("PM_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("PM_PASSWORD_MAX_LEN"); ok {
		n, err := atoiRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("PM_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("PM_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("PM_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := os.LookupEnv("PM_PASSWORD_SALT_LEN"); ok {
		n, err := atoiRange(v, 16, 64)
		if err != nil {
			return Config{}, fmt.Errorf("PM_PASSWORD_SALT_LEN: %w", err)
		}
		cfg.SaltLength = n
	}

	if v, ok := os.LookupEnv("PM_PBKDF2_ITERATIONS"); ok {
		n, err := atoiRange(v, DefaultPBKDF2Iterations, 10_000_000)
		if err != nil {
			return Config{}, fmt.Errorf("PM_PBKDF2_ITERATIONS: %w", err)
		}
		cfg.PBKDF2.Iterations = n
	}

	if v, ok := os.LookupEnv("PM_ARGON2_MEMORY_KIB"); ok {
		u, err := atou32(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("PM_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Argon2id.MemoryKiB = u
	}

	if v, ok := os.LookupEnv("PM_ARGON2_ITERATIONS"); ok {
		u, err := atou32(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("PM_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Argon2id.Iterations = u
	}

	if v, ok := os.LookupEnv("PM_ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, 64)
		if err != nil {
			return Config{}, fmt.Errorf("PM_ARGON2_PARALLELISM: %w", err)
		}
		if u > math.MaxUint8 {
			return Config{}, fmt.Errorf("PM_ARGON2_PARALLELISM: out of range")
		}
		cfg.Argon2id.Parallelism = uint8(u)
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	i64, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if i64 < int64(minVal) || i64 > int64(maxVal) {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return int(i64), nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
