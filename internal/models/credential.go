// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package models

import "time"

// Credential is a user's GitHub access token, encrypted at rest.
//
// At most one credential exists per user. Resubmitting overwrites the
// ciphertext and recomputes the expiry; revoking deletes the row.
type Credential struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// CiphertextB64 is base64(IV || AES-CBC ciphertext). The plaintext
	// token never leaves the vault package.
	CiphertextB64 string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
