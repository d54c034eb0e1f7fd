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

// CreateHabit inserts a new habit.
func (db *DB) CreateHabit(ctx context.Context, habit *models.Habit) error {
	if habit.ID == "" {
		habit.ID = "h_" + uuid.New().String()
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO habits (id, user_id, name, automation_source, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		habit.ID, habit.UserID, habit.Name, string(habit.AutomationSource),
		habit.IsArchived, habit.CreatedAt, habit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetHabit retrieves a habit by id. Returns ErrHabitNotFound if absent.
func (db *DB) GetHabit(ctx context.Context, id string) (*models.Habit, error) {
	query := `SELECT id, user_id, name, automation_source, is_archived, created_at, updated_at
		FROM habits WHERE id = ?`

	row := db.conn.QueryRowContext(ctx, query, id)
	return scanHabit(row)
}

// ListAutomationHabits retrieves all non-archived habits with GitHub
// automation enabled. This is the scheduler's scan query.
func (db *DB) ListAutomationHabits(ctx context.Context) ([]models.Habit, error) {
	query := `SELECT id, user_id, name, automation_source, is_archived, created_at, updated_at
		FROM habits
		WHERE automation_source = ? AND is_archived = false
		ORDER BY created_at`

	rows, err := db.conn.QueryContext(ctx, query, string(models.AutomationSourceGitHub))
	if err != nil {
		return nil, fmt.Errorf("failed to list automation habits: %w", err)
	}
	defer rows.Close()

	habits := make([]models.Habit, 0)
	for rows.Next() {
		habit, err := scanHabitRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}

// SetHabitArchived flips the archived flag. Used by tests and the admin
// surface; automation itself never mutates habits.
func (db *DB) SetHabitArchived(ctx context.Context, id string, archived bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE habits SET is_archived = ?, updated_at = ? WHERE id = ?`,
		archived, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrHabitNotFound
	}
	return nil
}

func scanHabit(row *sql.Row) (*models.Habit, error) {
	var h models.Habit
	var source string
	var updatedAt sql.NullTime

	err := row.Scan(&h.ID, &h.UserID, &h.Name, &source, &h.IsArchived, &h.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}

	h.AutomationSource = models.AutomationSource(source)
	if updatedAt.Valid {
		h.UpdatedAt = &updatedAt.Time
	}
	return &h, nil
}

func scanHabitRows(rows *sql.Rows) (*models.Habit, error) {
	var h models.Habit
	var source string
	var updatedAt sql.NullTime

	if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &source, &h.IsArchived, &h.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}

	h.AutomationSource = models.AutomationSource(source)
	if updatedAt.Valid {
		h.UpdatedAt = &updatedAt.Time
	}
	return &h, nil
}
