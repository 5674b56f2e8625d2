// Package custody encrypts private keys at rest. One process-wide AES-256
// key and initialization vector come from configuration; they are never
// logged or transmitted.
package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrKeySize is returned when the configured key or IV has the wrong
	// length.
	ErrKeySize = errors.New("custody key must be 32 bytes and IV 12 bytes")

	// ErrDecrypt is returned when ciphertext fails to decrypt. Fatal for
	// the request and never retried: a retry would only mask custody
	// corruption.
	ErrDecrypt = errors.New("private key decryption failed")
)

// Cipher encrypts and decrypts private key material with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
	iv   []byte
}

// NewCipher builds a cipher from the process-wide key and IV.
func NewCipher(key, iv []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrKeySize
	}

	return &Cipher{aead: aead, iv: iv}, nil
}

// Encrypt seals plaintext key material and returns base64 ciphertext for
// storage.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", fmt.Errorf("empty plaintext")
	}
	sealed := c.aead.Seal(nil, c.iv, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens stored ciphertext. Any failure maps to ErrDecrypt.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plaintext, err := c.aead.Open(nil, c.iv, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
