// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package vault stores per-user GitHub access tokens encrypted at rest.
//
// Encryption format:
//   - AES-256-CBC with PKCS#7 padding
//   - 16-byte random IV per encryption, prepended to the ciphertext
//   - stored value is base64(IV || ciphertext)
//
// There is no authentication tag; this matches the stored-credential
// format the service has always used. Tampered or truncated ciphertext
// fails decryption (bad padding or length) rather than being silently
// accepted, and those failures are surfaced as data-integrity errors,
// never as "no credential stored".
//
// The AES key is resolved exactly once at startup: a base64-encoded
// 32-byte value is used directly, anything else is treated as a
// passphrase and run through HKDF-SHA256.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// keyDerivationSalt binds derived keys to this application's
	// credential encryption use case.
	keyDerivationSalt = "habitsync-github-credentials"

	// keyDerivationInfo is the HKDF info parameter for key derivation.
	keyDerivationInfo = "credential-encryption-v1"

	// aesKeySize is the size of the AES key in bytes (256 bits).
	aesKeySize = 32

	// ivSize is the size of the CBC initialization vector in bytes.
	ivSize = aes.BlockSize
)

var (
	// ErrEmptySecret is returned when an empty key secret is provided.
	ErrEmptySecret = errors.New("encryption key secret cannot be empty")

	// ErrEmptyPlaintext is returned when attempting to encrypt empty data.
	ErrEmptyPlaintext = errors.New("plaintext cannot be empty")

	// ErrInvalidCiphertext is returned when the stored ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrCiphertextTooShort is returned when the stored bytes are shorter
	// than one IV.
	ErrCiphertextTooShort = errors.New("ciphertext too short")

	// ErrDecryptionFailed is returned when decryption fails (corrupted or
	// tampered data).
	ErrDecryptionFailed = errors.New("decryption failed: corrupted or tampered ciphertext")
)

// Cipher performs AES-256-CBC encryption of credential values. It is
// immutable after construction and safe for concurrent use.
type Cipher struct {
	key []byte
}

// NewCipher creates a Cipher from the configured key secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key, err := resolveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	// Fail fast on an unusable key.
	if _, err := aes.NewCipher(key); err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &Cipher{key: key}, nil
}

// resolveKey returns the raw AES key for the given secret: base64 32-byte
// values are used directly, anything else is derived via HKDF-SHA256.
func resolveKey(secret string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == aesKeySize {
		return raw, nil
	}

	hkdfReader := hkdf.New(sha256.New, []byte(secret), []byte(keyDerivationSalt), []byte(keyDerivationInfo))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to read HKDF output: %w", err)
	}
	return key, nil
}

// Encrypt encrypts a plaintext string and returns base64(IV || ciphertext).
// Each call generates a fresh random IV, so encrypting the same plaintext
// twice yields different output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := padPKCS7([]byte(plaintext), aes.BlockSize)

	out := make([]byte, ivSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[ivSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts base64(IV || ciphertext) and returns the plaintext.
// Any format or padding failure is a data-integrity error; it is never
// mapped to an absent credential.
func (c *Cipher) Decrypt(ciphertextB64 string) (string, error) {
	if ciphertextB64 == "" {
		return "", ErrCiphertextTooShort
	}

	data, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrInvalidCiphertext)
	}

	if len(data) < ivSize {
		return "", ErrCiphertextTooShort
	}

	iv := data[:ivSize]
	encrypted := data[ivSize:]

	if len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	plaintext := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, encrypted)

	unpadded, err := unpadPKCS7(plaintext, aes.BlockSize)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(unpadded), nil
}

// SelfCheck performs a round-trip encrypt/decrypt test. Called once at
// startup to validate the configured key.
func (c *Cipher) SelfCheck() error {
	const testData = "encryption-validation-test"

	encrypted, err := c.Encrypt(testData)
	if err != nil {
		return fmt.Errorf("encryption test failed: %w", err)
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		return fmt.Errorf("decryption test failed: %w", err)
	}

	if decrypted != testData {
		return errors.New("round-trip validation failed: data mismatch")
	}

	return nil
}

// MaskToken returns a masked version of a token for display purposes,
// showing only the last 4 characters.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****..." + token[len(token)-4:]
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid padding length")
	}

	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding bytes")
		}
	}

	return data[:len(data)-padLen], nil
}
