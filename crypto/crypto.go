// Package crypto seals OAuth tokens before they are written to the store.
// Values are sealed with AES-256-GCM and kept as base64 text.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Version is the encryption_version written next to sealed values. Zero
// means the column holds plaintext.
const Version = 1

// ErrOpen is returned when a sealed value fails authentication.
var ErrOpen = errors.New("crypto: cannot open sealed value")

// Sealer seals and opens short secrets.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
	KeyID() string
}

// AESGCM is a Sealer keyed with a 32-byte AES key.
type AESGCM struct {
	aead  cipher.AEAD
	keyID string
}

// NewAESGCM parses a base64 key (openssl rand -base64 32).
func NewAESGCM(base64Key string) (*AESGCM, error) {
	if base64Key == "" {
		return nil, errors.New("crypto: empty key")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	sum := sha256.Sum256(key)
	return &AESGCM{aead: aead, keyID: hex.EncodeToString(sum[:4])}, nil
}

// KeyID is a short fingerprint of the key, stored with each row so a
// rotated key can be detected.
func (a *AESGCM) KeyID() string { return a.keyID }

// Seal returns base64(nonce || ciphertext || tag). Empty input stays empty.
func (a *AESGCM) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}
	out := a.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (a *AESGCM) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("crypto: decode sealed value: %w", err)
	}
	n := a.aead.NonceSize()
	if len(raw) < n+a.aead.Overhead() {
		return "", ErrOpen
	}
	plain, err := a.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrOpen
	}
	return string(plain), nil
}
