// Package secret encrypts sensitive columns at rest with AES-256-GCM.
//
// Sealed values carry a prefix so rows written before a key was configured
// stay readable: Open returns unprefixed values unchanged.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const prefix = "enc:v1:"

var (
	// ErrInvalidCiphertext indicates the ciphertext is malformed or too short
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrNoKey is returned when opening a sealed value without a configured key
	ErrNoKey = errors.New("DATA_ENCRYPTION_KEY is not configured")

	mu  sync.RWMutex
	gcm cipher.AEAD
)

// Configure installs the base64 encoded 32 byte key. An empty key disables sealing.
func Configure(encodedKey string) error {
	mu.Lock()
	defer mu.Unlock()
	if encodedKey == "" {
		gcm = nil
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("encryption key must be 32 bytes (got %d bytes)", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}
	gcm = aead
	return nil
}

// Enabled reports whether a key is configured
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return gcm != nil
}

// IsSealed reports whether a stored value was produced by Seal
func IsSealed(value string) bool {
	return strings.HasPrefix(value, prefix)
}

// Seal encrypts plaintext. Empty strings, already sealed values and
// values written while no key is configured are returned unchanged.
func Seal(plaintext string) (string, error) {
	if plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}
	mu.RLock()
	aead := gcm
	mu.RUnlock()
	if aead == nil {
		return plaintext, nil
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal
func Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	mu.RLock()
	aead := gcm
	mu.RUnlock()
	if aead == nil {
		return "", ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, body := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// GenerateKey returns a random key suitable for DATA_ENCRYPTION_KEY
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
