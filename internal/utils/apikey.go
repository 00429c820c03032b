// Package utils provides helpers for issuing and checking API keys.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// KeyPrefixLen is how many leading characters of a raw key are stored in
// clear for lookup.
const KeyPrefixLen = 12

// ErrShortKey is returned for raw keys too short to carry a prefix.
var ErrShortKey = errors.New("api key too short")

// NewAPIKey returns a random raw key (64 hex chars) and its lookup prefix.
// The raw key is shown to the user once and never stored.
func NewAPIKey() (raw, prefix string, err error) {
	raw, err = randomHex(32)
	if err != nil {
		return "", "", err
	}
	return raw, raw[:KeyPrefixLen], nil
}

// KeyPrefix returns the lookup prefix of a raw key.
func KeyPrefix(raw string) (string, error) {
	if len(raw) <= KeyPrefixLen {
		return "", ErrShortKey
	}
	return raw[:KeyPrefixLen], nil
}

// HashAPIKey returns the bcrypt hash of a raw key using the given cost.
func HashAPIKey(raw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAPIKey safely compares a bcrypt hash and a raw key.
func VerifyAPIKey(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// randomHex returns a hex string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
