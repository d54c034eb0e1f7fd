// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package models

import "time"

// EntrySource identifies how an entry was created.
type EntrySource string

const (
	// EntrySourceManual marks an entry logged by the user.
	EntrySourceManual EntrySource = "manual"

	// EntrySourceAutomation marks an entry synthesized by the automation
	// pipeline. Automation entries always carry a non-nil ExternalID.
	EntrySourceAutomation EntrySource = "automation"
)

// Entry is one logged occurrence of a habit on a specific date.
//
// Invariants enforced by the store and the processor:
//   - Source == EntrySourceAutomation implies ExternalID != nil.
//   - At most one entry exists per (HabitID, ExternalID) pair.
//   - Automation never updates an existing entry, it only inserts.
type Entry struct {
	ID      string  `json:"id"`
	HabitID string  `json:"habitId"`
	UserID  string  `json:"userId"`
	Value   int     `json:"value"`
	Notes   *string `json:"notes,omitempty"`

	Source EntrySource `json:"source"`

	// ExternalID is the provider-scoped id of the event this entry was
	// derived from. Nil for manual entries.
	ExternalID *string `json:"externalId,omitempty"`

	IsArchived bool `json:"isArchived"`

	// Date is the calendar day this entry belongs to, stored at midnight.
	Date      time.Time  `json:"date"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
