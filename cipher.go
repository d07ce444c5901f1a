package oauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// EncryptionKeyEnv is the setting holding the hex encoded token key.
	EncryptionKeyEnv = "ENCRYPTION_KEY"

	tokenKeySize = 32
	tokenIVSize  = 16
	tokenTagSize = 16
)

// TokenCipher seals provider tokens before they are persisted using
// AES-256-GCM with a random 16 byte IV. Ciphertexts are rendered as
// ivHex:authTagHex:ciphertextHex.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a cipher from a 64 char hex key.
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, ConfigurationError(EncryptionKeyEnv)
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, InvalidConfiguration(EncryptionKeyEnv, "must be hex encoded")
	}
	if len(key) != tokenKeySize {
		return nil, InvalidConfiguration(EncryptionKeyEnv, fmt.Sprintf("must decode to %d bytes, got %d", tokenKeySize, len(key)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, tokenIVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// GenerateKey returns a fresh random key in the format NewTokenCipher accepts.
func GenerateKey() (string, error) {
	key := make([]byte, tokenKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext under a fresh IV. Encrypting the same value twice
// yields different outputs.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, tokenIVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", wrapError(ErrEncryptionFailed, "", "encrypt", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - tokenTagSize
	ct, tag := sealed[:split], sealed[split:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt. Structural problems return a
// malformed ciphertext error, authentication failures ErrDecryptionFailed.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", malformed("expected iv:tag:ciphertext")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != tokenIVSize {
		return "", malformed("invalid iv")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tokenTagSize {
		return "", malformed("invalid auth tag")
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", malformed("invalid ciphertext")
	}

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", wrapError(ErrDecryptionFailed, "", "decrypt", nil)
	}
	return string(plain), nil
}

func malformed(reason string) error {
	clone := ErrMalformedCiphertext.Clone()
	if clone == nil {
		return ErrMalformedCiphertext
	}
	return clone.WithMetadata(map[string]any{"reason": reason})
}
