package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// Argon2Params holds the argon2id cost parameters
type Argon2Params struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory_kib"`
	Threads uint8  `yaml:"threads"`
	KeyLen  uint32 `yaml:"key_len"`
}

// DefaultArgon2Params returns the parameters used when none are configured
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
	}
}

// PasswordHasher derives salted argon2id digests and verifies candidates
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher creates a hasher; zero-valued params fall back to defaults
func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	defaults := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = defaults.Time
	}
	if params.Memory == 0 {
		params.Memory = defaults.Memory
	}
	if params.Threads == 0 {
		params.Threads = defaults.Threads
	}
	if params.KeyLen == 0 {
		params.KeyLen = defaults.KeyLen
	}
	return &PasswordHasher{params: params}
}

// Hash returns the encoded digest of password together with the fresh salt used
func (h *PasswordHasher) Hash(password string) (digest string, salt string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = id.String()
	return h.derive(password, salt), salt, nil
}

// Verify reports whether password matches digest under salt.
// Malformed digests and empty salts never match.
func (h *PasswordHasher) Verify(password, digest, salt string) bool {
	if digest == "" || salt == "" {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(digest)
	if err != nil || len(stored) != int(h.params.KeyLen) {
		return false
	}
	candidate := argon2.IDKey([]byte(password), []byte(salt), h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

func (h *PasswordHasher) derive(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return base64.StdEncoding.EncodeToString(key)
}
