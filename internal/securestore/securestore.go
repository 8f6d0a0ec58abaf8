// Package securestore encrypts provider API keys before they reach the
// database. Keys are sealed with AES-256-GCM under a key derived from the
// configured secret; ciphertext is stored base64-encoded.
package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"solaudit/internal/config"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// SecureStore seals and opens secret values
type SecureStore struct {
	aead cipher.AEAD
}

// New creates a SecureStore from the configured secret
func New(cfg *config.SecureStoreConfig) (*SecureStore, error) {
	if cfg.Secret == "" {
		return nil, errors.New("securestore: secret is required")
	}

	// Derive a fixed-length key from the configured secret
	key := sha256.Sum256([]byte(cfg.Secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecureStore{aead: aead}, nil
}

// Seal encrypts a plaintext secret for storage
func (s *SecureStore) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a stored secret
func (s *SecureStore) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	return string(plaintext), nil
}
