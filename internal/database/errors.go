// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package database

import (
	"errors"
	"strings"
)

// Store errors.
var (
	// ErrHabitNotFound is returned when a habit id does not exist.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrCredentialNotFound is returned when a user has no stored credential.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrDuplicateEntry is returned when an insert collides with the
	// (habit_id, external_id) uniqueness backstop.
	ErrDuplicateEntry = errors.New("entry with this external id already exists for habit")
)

// isUniqueConstraintError checks if an error is a unique constraint violation.
// DuckDB unique constraint error messages contain "unique constraint" or
// "duplicate key".
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") || strings.Contains(errMsg, "duplicate key")
}
