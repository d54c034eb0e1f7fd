// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/models"
)

const insertEntryQuery = `INSERT INTO entries
	(id, habit_id, user_id, value, notes, source, external_id, is_archived, date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertEntries persists a batch of entries in a single transaction.
//
// If the batch hits the (habit_id, external_id) uniqueness backstop, a
// concurrent run has already persisted some of the same events. The batch
// is rolled back and retried row by row, skipping only the duplicate rows.
// Returns the number of entries actually inserted.
func (db *DB) InsertEntries(ctx context.Context, entries []models.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	for i := range entries {
		fillEntryDefaults(&entries[i])
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	batchErr := execInsertEntries(ctx, tx, entries)
	if batchErr == nil {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit entries: %w", err)
		}
		return len(entries), nil
	}

	_ = tx.Rollback()

	if !isUniqueConstraintError(batchErr) {
		return 0, fmt.Errorf("failed to insert entries: %w", batchErr)
	}

	// Concurrent duplicate: keep the rows the other run did not write.
	return db.insertEntriesSkippingDuplicates(ctx, entries)
}

// insertEntriesSkippingDuplicates inserts entries one at a time, treating
// uniqueness violations as already-persisted rows.
func (db *DB) insertEntriesSkippingDuplicates(ctx context.Context, entries []models.Entry) (int, error) {
	inserted := 0
	for i := range entries {
		e := &entries[i]
		_, err := db.conn.ExecContext(ctx, insertEntryQuery,
			e.ID, e.HabitID, e.UserID, e.Value, e.Notes, string(e.Source),
			e.ExternalID, e.IsArchived, e.Date, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			if isUniqueConstraintError(err) {
				logging.Debug().
					Str("habit_id", e.HabitID).
					Str("entry_id", e.ID).
					Msg("Skipping entry persisted by concurrent run")
				continue
			}
			return inserted, fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

func execInsertEntries(ctx context.Context, tx *sql.Tx, entries []models.Entry) error {
	stmt, err := tx.PrepareContext(ctx, insertEntryQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.HabitID, e.UserID, e.Value, e.Notes, string(e.Source),
			e.ExternalID, e.IsArchived, e.Date, e.CreatedAt, e.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func fillEntryDefaults(e *models.Entry) {
	if e.ID == "" {
		e.ID = "e_" + uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Value == 0 {
		e.Value = 1
	}
}

// EntryExists reports whether an entry already exists for the given habit
// and external event id. This is the processor's dedup pre-check.
func (db *DB) EntryExists(ctx context.Context, habitID, externalID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE habit_id = ? AND external_id = ?`,
		habitID, externalID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check entry existence: %w", err)
	}
	return count > 0, nil
}

// GetEntryDates returns the dates of all of a user's entries in ascending
// order, one element per entry (duplicates preserved so daily counts can
// be derived). Input to the stats engine.
func (db *DB) GetEntryDates(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT date FROM entries WHERE user_id = ? ORDER BY date`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry dates: %w", err)
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan entry date: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry dates: %w", err)
	}

	return dates, nil
}

// ListEntriesByHabit returns all entries for a habit ordered by date.
func (db *DB) ListEntriesByHabit(ctx context.Context, habitID string) ([]models.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, habit_id, user_id, value, notes, source, external_id, is_archived, date, created_at, updated_at
		FROM entries WHERE habit_id = ? ORDER BY date, id`, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		var source string
		var notes, externalID sql.NullString
		var updatedAt sql.NullTime

		if err := rows.Scan(&e.ID, &e.HabitID, &e.UserID, &e.Value, &notes, &source,
			&externalID, &e.IsArchived, &e.Date, &e.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		e.Source = models.EntrySource(source)
		if notes.Valid {
			e.Notes = &notes.String
		}
		if externalID.Valid {
			e.ExternalID = &externalID.String
		}
		if updatedAt.Valid {
			e.UpdatedAt = &updatedAt.Time
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}
