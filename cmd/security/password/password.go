package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const argon2Version = 19 // argon2.Version is 0x13 (19)

// Salts are stored as standard padded base64; derived keys inside the digest
// use the unpadded PHC alphabet.
var (
	saltEnc = base64.StdEncoding
	keyEnc  = base64.RawStdEncoding
)

// NewSalt returns a fresh random salt encoded for storage.
func (c Config) NewSalt() (string, error) {
	b := make([]byte, c.SaltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	return saltEnc.EncodeToString(b), nil
}

// New validates password against the policy, generates a salt and derives the digest.
func (c Config) New(password string) (salt, digest string, err error) {
	if err := c.Validate(password); err != nil {
		return "", "", err
	}
	salt, err = c.NewSalt()
	if err != nil {
		return "", "", err
	}
	digest, err = c.Hash(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, digest, nil
}

// Hash derives the digest of password with the configured algorithm.
func (c Config) Hash(password, salt string) (string, error) {
	s, err := decodeSalt(salt)
	if err != nil {
		return "", err
	}

	switch c.Algorithm {
	case AlgPBKDF2SHA256:
		key := pbkdf2.Key([]byte(password), s, c.PBKDF2.Iterations, c.PBKDF2.KeyLength, sha256.New)
		return fmt.Sprintf("$%s$i=%d$%s", AlgPBKDF2SHA256, c.PBKDF2.Iterations, keyEnc.EncodeToString(key)), nil

	case AlgArgon2id:
		p := c.Argon2id
		key := argon2.IDKey([]byte(password), s, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
		return fmt.Sprintf(
			"$%s$v=%d$m=%d,t=%d,p=%d$%s",
			AlgArgon2id, argon2Version, p.MemoryKiB, p.Iterations, p.Parallelism, keyEnc.EncodeToString(key),
		), nil

	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// Verify reports whether password matches digest under salt.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash/ErrInvalidSalt) for malformed input.
func (c Config) Verify(password, salt, digest string) (bool, error) {
	s, err := decodeSalt(salt)
	if err != nil {
		return false, err
	}
	d, err := decode(digest)
	if err != nil {
		return false, err
	}
	if !c.withinReasonableBounds(d) {
		return false, ErrInvalidHash
	}

	var key []byte
	switch d.alg {
	case AlgPBKDF2SHA256:
		key = pbkdf2.Key([]byte(password), s, d.iterations, len(d.key), sha256.New)
	case AlgArgon2id:
		// #nosec G115 -- key length bounded by withinReasonableBounds.
		key = argon2.IDKey([]byte(password), s, d.argon.Iterations, d.argon.MemoryKiB, d.argon.Parallelism, uint32(len(d.key)))
	}

	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

type decoded struct {
	alg        string
	iterations int
	argon      Argon2idParams
	key        []byte
}

// Allow verifying digests made with older/smaller settings,
// but reject wildly larger ones.
func (c Config) withinReasonableBounds(d decoded) bool {
	if len(d.key) < 16 || len(d.key) > 128 {
		return false
	}
	switch d.alg {
	case AlgPBKDF2SHA256:
		limit := c.PBKDF2.Iterations * 4
		if limit < DefaultPBKDF2Iterations {
			limit = DefaultPBKDF2Iterations * 4
		}
		return d.iterations >= 1 && d.iterations <= limit
	case AlgArgon2id:
		lim := c.Argon2id
		if lim.MemoryKiB == 0 {
			lim = DefaultConfig().Argon2id
		}
		return d.argon.MemoryKiB <= lim.MemoryKiB*2 &&
			d.argon.Iterations <= lim.Iterations*2 &&
			uint32(d.argon.Parallelism) <= uint32(lim.Parallelism)*2
	}
	return false
}

func decodeSalt(salt string) ([]byte, error) {
	s, err := saltEnc.DecodeString(salt)
	if err != nil || len(s) < 8 || len(s) > 64 {
		return nil, ErrInvalidSalt
	}
	return s, nil
}

func decode(digest string) (decoded, error) {
	parts := strings.Split(digest, "$")
	if len(parts) < 2 || parts[0] != "" {
		return decoded{}, ErrInvalidHash
	}

	switch parts[1] {
	case AlgPBKDF2SHA256:
		// $pbkdf2-sha256$i=100000$<key>
		if len(parts) != 4 {
			return decoded{}, ErrInvalidHash
		}
		var it int
		if _, err := fmt.Sscanf(parts[2], "i=%d", &it); err != nil || it <= 0 {
			return decoded{}, ErrInvalidHash
		}
		key, err := keyEnc.DecodeString(parts[3])
		if err != nil {
			return decoded{}, ErrInvalidHash
		}
		return decoded{alg: AlgPBKDF2SHA256, iterations: it, key: key}, nil

	case AlgArgon2id:
		// $argon2id$v=19$m=65536,t=3,p=1$<key>
		if len(parts) != 5 || parts[2] != "v=19" {
			return decoded{}, ErrInvalidHash
		}
		var mem, it, par uint32
		if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
			return decoded{}, ErrInvalidHash
		}
		if mem == 0 || it == 0 || par == 0 || par > 255 {
			return decoded{}, ErrInvalidHash
		}
		key, err := keyEnc.DecodeString(parts[4])
		if err != nil {
			return decoded{}, ErrInvalidHash
		}
		return decoded{
			alg:   AlgArgon2id,
			argon: Argon2idParams{MemoryKiB: mem, Iterations: it, Parallelism: uint8(par), KeyLength: uint32(len(key))}, // #nosec G115 -- par <= 255 checked above.
			key:   key,
		}, nil

	default:
		return decoded{}, ErrUnsupportedAlgorithm
	}
}
