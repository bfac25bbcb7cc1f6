// Package crypto seals OAuth credentials before they are written to the database.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the sealing key is empty.
	ErrInvalidKey = errors.New("invalid token key: must not be empty")
	// ErrOpenFailed is returned for tampered ciphertext, a wrong key, or a
	// ciphertext sealed for a different owner.
	ErrOpenFailed = errors.New("failed to open sealed token")
)

// TokenSealer encrypts access and refresh tokens with AES-256-GCM.
// The owner string (user and organization) is bound as additional data, so
// a ciphertext copied onto another row will not open.
type TokenSealer struct {
	gcm cipher.AEAD
}

// NewTokenSealer accepts either a base64-encoded 32-byte key
// (openssl rand -base64 32) or a passphrase, which is hashed with SHA-256.
func NewTokenSealer(keyInput string) (*TokenSealer, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	key, err := base64.StdEncoding.DecodeString(keyInput)
	if err != nil || len(key) != 32 {
		sum := sha256.Sum256([]byte(keyInput))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &TokenSealer{gcm: gcm}, nil
}

// Seal returns base64(nonce || ciphertext || tag). Empty input stays empty
// so an absent refresh token round-trips as "".
func (s *TokenSealer) Seal(plaintext, owner string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(owner))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal for the same owner.
func (s *TokenSealer) Open(sealed, owner string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrOpenFailed)
	}
	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize+s.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrOpenFailed)
	}

	plaintext, err := s.gcm.Open(nil, data[:nonceSize], data[nonceSize:], []byte(owner))
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrOpenFailed)
	}
	return string(plaintext), nil
}

// Owner formats the additional data for a user/organization pair.
func Owner(userID, organization string) string {
	return userID + "\x00" + organization
}
