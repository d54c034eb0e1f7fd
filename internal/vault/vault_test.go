// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/habitlab/habitsync/internal/database"
	"github.com/habitlab/habitsync/internal/models"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("test-passphrase-for-unit-tests")
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	return c
}

func TestNewCipherEmptySecret(t *testing.T) {
	if _, err := NewCipher(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestNewCipherRawBase64Key(t *testing.T) {
	raw := make([]byte, aesKeySize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}

	c, err := NewCipher(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("NewCipher with raw key failed: %v", err)
	}
	if err := c.SelfCheck(); err != nil {
		t.Errorf("SelfCheck failed: %v", err)
	}
}

func TestCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	plaintexts := []string{
		"a",
		"ghp_1234567890abcdefghij",
		strings.Repeat("x", 1000),
		"token with spaces and üñíçödé",
		strings.Repeat("b", 16), // exactly one block
	}

	for _, pt := range plaintexts {
		encrypted, err := c.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", pt, err)
		}
		decrypted, err := c.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt failed for %q: %v", pt, err)
		}
		if decrypted != pt {
			t.Errorf("round trip mismatch: got %q, want %q", decrypted, pt)
		}
	}
}

func TestCipherFreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := c.Encrypt("same-plaintext")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if first == second {
		t.Error("two encryptions of the same plaintext produced identical output")
	}
}

func TestCipherEmptyPlaintext(t *testing.T) {
	c := newTestCipher(t)
	if _, err := c.Encrypt(""); !errors.Is(err, ErrEmptyPlaintext) {
		t.Errorf("expected ErrEmptyPlaintext, got %v", err)
	}
}

func TestDecryptRejectsCorruptedData(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatalf("base64 decode failed: %v", err)
	}

	// Flip a bit in the last ciphertext block to corrupt the padding.
	raw[len(raw)-1] ^= 0xff
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString(raw)); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed for corrupted data, got %v", err)
	}
}

func TestDecryptRejectsTruncatedData(t *testing.T) {
	c := newTestCipher(t)

	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrCiphertextTooShort},
		{"shorter than IV", base64.StdEncoding.EncodeToString(make([]byte, ivSize-1)), ErrCiphertextTooShort},
		{"IV only", base64.StdEncoding.EncodeToString(make([]byte, ivSize)), ErrDecryptionFailed},
		{"partial block", base64.StdEncoding.EncodeToString(make([]byte, ivSize+7)), ErrDecryptionFailed},
		{"not base64", "!!not-valid-base64!!", ErrInvalidCiphertext},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decrypt(tc.input); !errors.Is(err, tc.want) {
				t.Errorf("Decrypt(%q) = %v, want %v", tc.input, err, tc.want)
			}
		})
	}
}

func TestDecryptWrongKey(t *testing.T) {
	first := newTestCipher(t)
	second, err := NewCipher("a-different-passphrase")
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	encrypted, err := first.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// CBC padding rejects almost all wrong-key decryptions. A ~0.4%
	// false accept is possible without an auth tag; a mismatched
	// plaintext is acceptable then, silence is not.
	if decrypted, err := second.Decrypt(encrypted); err == nil && decrypted == "secret-token" {
		t.Error("wrong key produced the original plaintext")
	}
}

func TestMaskToken(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"ghp_1234567890abcdefghij", "****...ghij"},
	}

	for _, tc := range cases {
		if got := MaskToken(tc.input); got != tc.want {
			t.Errorf("MaskToken(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// fakeStore is an in-memory credential store for vault tests.
type fakeStore struct {
	creds map[string]*models.Credential
}

func newFakeStore() *fakeStore {
	return &fakeStore{creds: make(map[string]*models.Credential)}
}

func (s *fakeStore) GetCredential(_ context.Context, userID string) (*models.Credential, error) {
	c, ok := s.creds[userID]
	if !ok {
		return nil, database.ErrCredentialNotFound
	}
	return c, nil
}

func (s *fakeStore) UpsertCredential(_ context.Context, userID, ciphertextB64 string, expiresAt time.Time) error {
	s.creds[userID] = &models.Credential{
		ID:            "gh_test",
		UserID:        userID,
		CiphertextB64: ciphertextB64,
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     expiresAt,
	}
	return nil
}

func (s *fakeStore) DeleteCredential(_ context.Context, userID string) error {
	delete(s.creds, userID)
	return nil
}

func TestVaultStoreAndGet(t *testing.T) {
	v := New(newFakeStore(), newTestCipher(t))
	ctx := context.Background()

	if err := v.Store(ctx, "user-1", "ghp_secret", 30); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	token, err := v.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "ghp_secret" {
		t.Errorf("Get returned %q, want %q", token, "ghp_secret")
	}
}

func TestVaultStoreOverwrites(t *testing.T) {
	v := New(newFakeStore(), newTestCipher(t))
	ctx := context.Background()

	if err := v.Store(ctx, "user-1", "first-token", 30); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := v.Store(ctx, "user-1", "second-token", 30); err != nil {
		t.Fatalf("second Store failed: %v", err)
	}

	token, err := v.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "second-token" {
		t.Errorf("Get returned %q after overwrite, want %q", token, "second-token")
	}
}

func TestVaultStoreRejectsInvalidTTL(t *testing.T) {
	v := New(newFakeStore(), newTestCipher(t))

	if err := v.Store(context.Background(), "user-1", "token", 0); err == nil {
		t.Error("Store accepted zero ttl")
	}
}

func TestVaultGetNoCredential(t *testing.T) {
	v := New(newFakeStore(), newTestCipher(t))

	if _, err := v.Get(context.Background(), "nobody"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestVaultGetCorruptedCredential(t *testing.T) {
	store := newFakeStore()
	v := New(store, newTestCipher(t))
	ctx := context.Background()

	if err := v.Store(ctx, "user-1", "ghp_secret", 30); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Corrupt the stored ciphertext. The vault must surface an
	// integrity error, not report the credential as missing.
	store.creds["user-1"].CiphertextB64 = "Y29ycnVwdGVk"

	_, err := v.Get(ctx, "user-1")
	if err == nil {
		t.Fatal("Get succeeded on corrupted ciphertext")
	}
	if errors.Is(err, ErrNoCredential) {
		t.Error("corrupted credential reported as missing")
	}
}

func TestVaultRevoke(t *testing.T) {
	v := New(newFakeStore(), newTestCipher(t))
	ctx := context.Background()

	if err := v.Store(ctx, "user-1", "ghp_secret", 30); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := v.Revoke(ctx, "user-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := v.Get(ctx, "user-1"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential after revoke, got %v", err)
	}

	// Revoking again is a no-op.
	if err := v.Revoke(ctx, "user-1"); err != nil {
		t.Errorf("second Revoke failed: %v", err)
	}
}
