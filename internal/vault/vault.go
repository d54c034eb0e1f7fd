// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitlab/habitsync/internal/database"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/models"
)

// ErrNoCredential is returned by Get when the user has no stored
// credential. Callers treat this as "nothing to do", unlike decryption
// failures which indicate corrupted data and must not be swallowed.
var ErrNoCredential = errors.New("no credential stored")

// store is the subset of database operations the vault needs.
type store interface {
	GetCredential(ctx context.Context, userID string) (*models.Credential, error)
	UpsertCredential(ctx context.Context, userID, ciphertextB64 string, expiresAt time.Time) error
	DeleteCredential(ctx context.Context, userID string) error
}

// Vault stores and retrieves encrypted GitHub access tokens.
type Vault struct {
	db     store
	cipher *Cipher
}

// New creates a Vault backed by the given database and cipher.
func New(db store, cipher *Cipher) *Vault {
	return &Vault{db: db, cipher: cipher}
}

// Store encrypts a token and persists it for the user, replacing any
// existing credential. The expiry is informational only; stored tokens
// are served until revoked or overwritten.
func (v *Vault) Store(ctx context.Context, userID, token string, ttlDays int) error {
	if ttlDays < 1 {
		return fmt.Errorf("invalid credential ttl: %d days", ttlDays)
	}

	ciphertext, err := v.cipher.Encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	expiresAt := time.Now().UTC().AddDate(0, 0, ttlDays)
	if err := v.db.UpsertCredential(ctx, userID, ciphertext, expiresAt); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	logging.Info().
		Str("user_id", userID).
		Str("token", MaskToken(token)).
		Time("expires_at", expiresAt).
		Msg("Stored GitHub credential")

	return nil
}

// Get retrieves and decrypts the user's token. Returns ErrNoCredential
// if none is stored. Decryption failures are returned as-is so callers
// can distinguish a corrupted credential from a missing one.
func (v *Vault) Get(ctx context.Context, userID string) (string, error) {
	cred, err := v.db.GetCredential(ctx, userID)
	if errors.Is(err, database.ErrCredentialNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	token, err := v.cipher.Decrypt(cred.CiphertextB64)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential for user %s: %w", userID, err)
	}

	return token, nil
}

// Revoke deletes the user's stored credential. Revoking when nothing is
// stored succeeds silently.
func (v *Vault) Revoke(ctx context.Context, userID string) error {
	if err := v.db.DeleteCredential(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	logging.Debug().Str("user_id", userID).Msg("Revoked GitHub credential")
	return nil
}
