package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPasswordIterations is the PBKDF2 iteration count used when none is configured
	DefaultPasswordIterations = 100000

	saltBytes = 16
	keyBytes  = 32
)

var unsaltedPlaceholder = strings.Repeat("0", saltBytes*2)

// PasswordHasher derives salted password digests with PBKDF2-HMAC-SHA256.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher creates a hasher; iterations <= 0 selects the default
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultPasswordIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// NewSalt returns 16 random bytes, hex encoded
func (h *PasswordHasher) NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Hash derives the hex digest of password keyed with salt
func (h *PasswordHasher) Hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, keyBytes, sha256.New)
	return hex.EncodeToString(key)
}

// Verify recomputes the digest and compares it in constant time.
// Accounts stored without a salt never verify, but still pay for a full derivation.
func (h *PasswordHasher) Verify(password, salt, hash string) bool {
	usable := salt != "" && hash != ""
	if !usable {
		salt = unsaltedPlaceholder
	}

	computed := h.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1 && usable
}
