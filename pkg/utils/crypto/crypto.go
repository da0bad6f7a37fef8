package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypt seals plaintext with a key derived from the configured secret and
// returns a base64 string safe to store in a database column.
func Encrypt(plaintext, key string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// newAEAD derives a fixed-size key from the configured secret so operators
// can use any passphrase length.
func newAEAD(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, errors.New("encryption key is empty")
	}
	sum := sha256.Sum256([]byte(key))
	return chacha20poly1305.NewX(sum[:])
}

// RandomToken returns a URL-safe random token of n bytes of entropy.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
