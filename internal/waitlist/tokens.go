package waitlist

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// NewVerificationToken returns 32 random bytes hex encoded.
func NewVerificationToken() (string, error) {
	return randomHex(32)
}

// NewReferralCode returns 4 random bytes as upper case hex, e.g. "3FA91C0B".
func NewReferralCode() (string, error) {
	code, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
