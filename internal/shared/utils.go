// Package shared holds small helpers used across the onboarding packages.
package shared

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RequestID returns a random hex identifier of 2*size characters. It tags
// outgoing mutations so the backend can deduplicate retries.
func RequestID(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("request id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Passwords and payment details pass
// through the wizard as byte slices and are wiped once submitted.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WipeAll zeroes every slice given.
func WipeAll(bs ...[]byte) {
	for _, b := range bs {
		WipeByteArray(b)
	}
}
