// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package models defines the core data structures shared across Habitsync.
// All shapes here are static plain structs; nothing is dynamically inspected.
package models

import "time"

// AutomationSource identifies the external provider that auto-generates
// entries for a habit.
type AutomationSource string

const (
	// AutomationSourceNone marks a habit with no automation configured.
	AutomationSourceNone AutomationSource = ""

	// AutomationSourceGitHub marks a habit that auto-logs entries from
	// GitHub push events.
	AutomationSourceGitHub AutomationSource = "github"
)

// Habit is a trackable recurring activity owned by a user.
//
// The automation core treats habits as read-only: it lists and re-fetches
// them to decide eligibility but never mutates them. The wider CRUD surface
// owns their lifecycle.
type Habit struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	Name             string           `json:"name"`
	AutomationSource AutomationSource `json:"automationSource,omitempty"`
	IsArchived       bool             `json:"isArchived"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        *time.Time       `json:"updatedAt,omitempty"`
}

// AutomationEnabled reports whether the habit is eligible for automated
// entry ingestion.
func (h *Habit) AutomationEnabled() bool {
	return h.AutomationSource == AutomationSourceGitHub && !h.IsArchived
}
