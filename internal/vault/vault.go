package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrTamperedOrCorrupt is returned when a ciphertext fails authentication or
// cannot be parsed. Decryption never returns partial plaintext.
var ErrTamperedOrCorrupt = errors.New("ciphertext is tampered or corrupt")

// Vault encrypts and decrypts secrets with AES-256-GCM under a process-wide
// master key. It holds no other state and is safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a raw 32-byte master key.
func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals a plaintext secret and returns a base64 blob. A fresh random
// nonce is drawn for every call; the blob layout is nonce || ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	blob := append(nonce, ciphertext...)

	return base64.RawStdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed or unauthenticated
// input fails with ErrTamperedOrCorrupt.
func (v *Vault) Decrypt(blob string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("failed to decode blob: %w", ErrTamperedOrCorrupt)
	}

	nonceSize := v.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("blob is too short: %w", ErrTamperedOrCorrupt)
	}

	nonce := raw[:nonceSize]
	ciphertext := raw[nonceSize:]

	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate blob: %w", ErrTamperedOrCorrupt)
	}

	return string(plaintext), nil
}
