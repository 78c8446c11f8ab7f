package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	ErrMissingKey        = errors.New("credentials key not configured")
	ErrInvalidKeyLength  = errors.New("credentials key must decode to exactly 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication error")
)

// EncryptString seals plaintext with the configured credentials key and returns
// base64(nonce || box).
func EncryptString(plaintext string) (string, error) {
	key, err := loadKey(GetConfig().CredentialsKey)
	if err != nil {
		return "", err
	}
	return Encrypt(plaintext, key)
}

// DecryptString opens a value produced by EncryptString.
func DecryptString(ciphertext string) (string, error) {
	key, err := loadKey(GetConfig().CredentialsKey)
	if err != nil {
		return "", err
	}
	return Decrypt(ciphertext, key)
}

func Encrypt(plaintext string, key *[32]byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func Decrypt(ciphertext string, key *[32]byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidCiphertext
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// ParseKey decodes a base64 key as configured in DERIV_CREDENTIALS_KEY.
func ParseKey(encoded string) (*[32]byte, error) {
	return loadKey(encoded)
}

func loadKey(encoded string) (*[32]byte, error) {
	if encoded == "" {
		return nil, ErrMissingKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode credentials key: %w", err)
	}
	if len(raw) != 32 {
		return nil, ErrInvalidKeyLength
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
