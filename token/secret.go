package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const (
	DefaultSecretLength = 32
	DefaultSaltLength   = 16
)

// argon2id parameters. Secrets are 256 bits of random data, so the work
// factor only needs to make offline guessing of the hash pointless.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 19 * 1024
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.Wrap(err, "[token.RandBytes] rand.Read")
	}
	return b, nil
}

// GenerateSecret returns a new base64url plaintext bearer secret.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	b, err := RandBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSalt returns a base64 encoded random salt.
func NewSalt(length int) (string, error) {
	if length <= 0 {
		length = DefaultSaltLength
	}
	b, err := RandBytes(length)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Hash derives the stored digest of plaintext under salt.
func Hash(plaintext, salt string) string {
	key := argon2.IDKey([]byte(plaintext), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(key)
}

// Verify reports whether plaintext hashes to expected under salt.
func Verify(plaintext, salt, expected string) bool {
	if plaintext == "" || salt == "" || expected == "" {
		return false
	}
	got := Hash(plaintext, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// HashSecret generates a salt and returns it with the digest of plaintext.
func HashSecret(plaintext string, saltLength int) (hash, salt string, err error) {
	salt, err = NewSalt(saltLength)
	if err != nil {
		return "", "", err
	}
	return Hash(plaintext, salt), salt, nil
}
