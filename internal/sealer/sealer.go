// Package sealer encrypts small values, such as API tokens, before they are
// written to session storage.
package sealer

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrMalformed is returned when a sealed value cannot be opened.
var ErrMalformed = errors.New("sealer: malformed or tampered value")

const info = "storefront session entries v1"

// Sealer seals and opens values with XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// New derives a key from secret. The secret must be at least 16 bytes.
func New(secret string) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("sealer: secret must be at least 16 bytes")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("sealer: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext bound to the associated data ad.
func (s *Sealer) Seal(plaintext, ad string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sealer: nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(ad))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal with the same ad.
func (s *Sealer) Open(sealed, ad string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(ad))
	if err != nil {
		return "", ErrMalformed
	}
	return string(pt), nil
}
