package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidSignature is returned when a presented MAC does not match.
// Callers must treat it as a hard rejection, never as a retryable failure.
var ErrInvalidSignature = errors.New("invalid signature")

// keySize in bytes. SHA-256 HMAC keys longer than the block size gain
// nothing, 64 bytes is the full block.
const keySize = 64

// GenerateKey mints a new random HMAC key, base64 encoded for storage in
// the remote_systems table.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func calculate(key []byte, values ...string) []byte {
	mac := hmac.New(sha256.New, key)
	for _, v := range values {
		mac.Write([]byte(v))
	}
	return mac.Sum(nil)
}

// Sign computes the base64 MAC over the given values with a stored
// (base64 encoded) key.
func Sign(encodedKey string, values ...string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", fmt.Errorf("malformed signing key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(calculate(key, values...)), nil
}

// Verify checks a presented MAC against the given values.
func Verify(encodedKey, presented string, values ...string) error {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return fmt.Errorf("malformed signing key: %w", err)
	}
	in, err := base64.StdEncoding.DecodeString(presented)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(in, calculate(key, values...)) {
		return ErrInvalidSignature
	}
	return nil
}
