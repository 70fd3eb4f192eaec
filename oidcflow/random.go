package oidcflow

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// randomToken returns 21 bytes (168 bits) of cryptographically secure
// randomness, base64url-encoded without padding, for use as a state or
// nonce string (spec.md §4.1, §9). Grounded on pkg/crypto.RandBytes,
// generalized to also do the encoding since every caller here wants a
// URL-safe string, not raw bytes.
func randomToken() (string, error) {
	b := make([]byte, 21)
	n, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("oidcflow: generating random token: %w", err)
	}
	if n != len(b) {
		return "", fmt.Errorf("oidcflow: generating random token: short read")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
