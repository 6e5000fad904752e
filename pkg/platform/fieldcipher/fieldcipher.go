// Package fieldcipher encrypts individual sensitive text fields for at-rest
// storage. Each field is encrypted independently so columns can be decrypted
// (or rotated) one at a time. Tokens are versioned and self-contained: a
// random nonce is prepended to the AES-256-GCM ciphertext, base64url encoded.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// TokenPrefix marks a value as an encrypted token. Stores use it to tell
// cipher tokens apart from legacy plaintext.
const TokenPrefix = "enc1:"

var (
	// ErrKeyMissing indicates the cipher was constructed without a key.
	// Checkout must refuse to run rather than store plaintext.
	ErrKeyMissing = errors.New("fieldcipher: encryption key not configured")
	// ErrInvalidKey indicates the configured key is not a valid 32-byte value.
	ErrInvalidKey = errors.New("fieldcipher: key must be 32 bytes, base64 encoded")
	// ErrDecrypt indicates a token could not be decrypted with the configured
	// key. Distinct from an absent field, which never reaches the cipher.
	ErrDecrypt = errors.New("fieldcipher: cannot decrypt token")
)

// Cipher performs symmetric field encryption. Stateless once constructed;
// safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a base64-encoded 256-bit key.
func New(encodedKey string) (*Cipher, error) {
	if encodedKey == "" {
		return nil, ErrKeyMissing
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(encodedKey)
	}
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("fieldcipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// GenerateKey returns a fresh base64-encoded 256-bit key. Used by tooling and
// tests; production keys come from configuration.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("fieldcipher: generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt seals a plaintext field into an opaque token. Empty input yields an
// empty token so nullable columns stay null.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcipher: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. An empty token round-trips to an
// empty string; a token sealed under a different key fails with ErrDecrypt.
func (c *Cipher) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok {
		return "", ErrDecrypt
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// IsToken reports whether a stored value is an encrypted token.
func IsToken(value string) bool {
	return strings.HasPrefix(value, TokenPrefix)
}
