package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// HashRefreshToken produces the stored form of a refresh token. The hash is
// deterministic so rotation can compare and swap on the stored value; the
// pepper keeps a leaked database from being replayable on its own.
func HashRefreshToken(raw, pepper string) string {
	h := sha256.Sum256([]byte(raw + ":" + pepper))
	return hex.EncodeToString(h[:])
}

// NewVerificationToken returns a 32-byte hex token for email verification
// links.
func NewVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
