// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package database

import "fmt"

// createSchema creates the core tables and indexes.
//
// All columns are defined in the initial CREATE TABLE statements; there is
// no migration machinery yet.
//
// The unique index on (habit_id, external_id) is the storage-level
// idempotency backstop for automated ingestion: the processor pre-checks
// for duplicates, and this index catches the race where two overlapping
// runs both pass the pre-check. Manual entries carry a NULL external_id
// and are exempt.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			automation_source TEXT NOT NULL DEFAULT '',
			is_archived BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			habit_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			value INTEGER NOT NULL,
			notes TEXT,
			source TEXT NOT NULL,
			external_id TEXT,
			is_archived BOOLEAN NOT NULL DEFAULT false,
			date DATE NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS github_credentials (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			token_encrypted TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,

		// Idempotency backstop for automated ingestion.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_habit_external
			ON entries (habit_id, external_id)`,

		// Query paths: per-user stats scans and per-habit listings.
		`CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries (user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_habit ON entries (habit_id)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_automation ON habits (automation_source, is_archived)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
