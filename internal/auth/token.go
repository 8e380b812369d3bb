package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// LinkTokenBytes is the entropy of a magic link token. 32 bytes encodes to
// a 64-character hex string used as an exact-match lookup key.
const LinkTokenBytes = 32

// GenerateLinkToken returns a cryptographically secure opaque hex token.
func GenerateLinkToken() (string, error) {
	buf := make([]byte, LinkTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateOTPCode returns a 6-digit numeric code uniform over
// 100000-999999, never zero-padded below 100000.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
