package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// HashRefreshSecret hashes the private half of a composite refresh token.
// The secret is never persisted in clear; the public token id stays the
// lookup key so hashed secrets never need to be scanned by value.
func HashRefreshSecret(raw, pepper string) string {
	h := sha256.Sum256([]byte(raw + ":" + pepper))
	return hex.EncodeToString(h[:])
}

// VerifyRefreshSecret compares a presented secret against the stored hash
// in constant time.
func VerifyRefreshSecret(raw, pepper, storedHash string) bool {
	return hmac.Equal([]byte(HashRefreshSecret(raw, pepper)), []byte(storedHash))
}

// NewRandomSecret returns n random bytes encoded as unpadded base64url.
// The alphabet never contains ':', so composite tokens split unambiguously.
func NewRandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
