// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/habitlab/habitsync/internal/models"
)

// GetCredential retrieves a user's stored credential. Returns
// ErrCredentialNotFound if the user has none.
func (db *DB) GetCredential(ctx context.Context, userID string) (*models.Credential, error) {
	query := `SELECT id, user_id, token_encrypted, created_at, expires_at
		FROM github_credentials WHERE user_id = ?`

	var c models.Credential
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&c.ID, &c.UserID, &c.CiphertextB64, &c.CreatedAt, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return &c, nil
}

// UpsertCredential stores a credential for a user, overwriting the
// ciphertext and expiry if one already exists. The ciphertext must
// already be encrypted by the vault.
func (db *DB) UpsertCredential(ctx context.Context, userID, ciphertextB64 string, expiresAt time.Time) error {
	now := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE github_credentials SET token_encrypted = ?, expires_at = ? WHERE user_id = ?`,
		ciphertextB64, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO github_credentials (id, user_id, token_encrypted, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		"gh_"+uuid.New().String(), userID, ciphertextB64, now, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

// DeleteCredential removes a user's credential. Deleting a credential
// that does not exist is a no-op.
func (db *DB) DeleteCredential(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM github_credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
