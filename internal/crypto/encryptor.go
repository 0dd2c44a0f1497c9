// Package crypto encrypts provider API keys, secrets and OAuth tokens before
// they are written to the settings table. Values are sealed with AES-256-GCM
// under a key derived with PBKDF2 from CONFIG_ENCRYPTION_KEY.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"newsletter-gate/internal/common/errors"
)

// Prefix marks a stored value as produced by Encrypt, so values written
// before encryption was configured can still be read as plain text.
const Prefix = "enc:v1:"

// ConfigEncryptor seals and opens setting values. Safe for concurrent use.
type ConfigEncryptor struct {
	aead cipher.AEAD
}

// NewConfigEncryptor derives a 32-byte AES key from key.
func NewConfigEncryptor(key string) (*ConfigEncryptor, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	derived := pbkdf2.Key([]byte(key), []byte("newsletter-gate-settings"), 10000, 32, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &ConfigEncryptor{aead: aead}, nil
}

// Encrypt returns Prefix followed by base64(nonce|ciphertext). Empty input stays empty.
func (e *ConfigEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without Prefix are
// returned unchanged.
func (e *ConfigEncryptor) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}
	return string(plaintext), nil
}

// EncryptJSON marshals v and encrypts the result
func (e *ConfigEncryptor) EncryptJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.InternalError("failed to marshal JSON", err)
	}
	return e.Encrypt(string(raw))
}

// DecryptJSON decrypts value and unmarshals it into v
func (e *ConfigEncryptor) DecryptJSON(value string, v interface{}) error {
	plaintext, err := e.Decrypt(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(plaintext), v); err != nil {
		return errors.InternalError("failed to unmarshal JSON", err)
	}
	return nil
}

// IsEncrypted reports whether value carries Prefix
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}
