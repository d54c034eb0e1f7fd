// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package github defines the wire shapes returned by the GitHub REST API.
// Events are transient: only the event id and a few derived fields ever
// reach the entry store.
package github

import "time"

// PushEventType is the event type tag for push activity. Only events of
// this type produce habit entries.
const PushEventType = "PushEvent"

// Profile is the authenticated user's GitHub profile (GET /user).
type Profile struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// Event is one record from the user's public event timeline
// (GET /users/{login}/events).
type Event struct {
	// ID is globally unique per provider and backs entry deduplication.
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Actor     Actor      `json:"actor"`
	Repo      Repository `json:"repo"`
	Payload   Payload    `json:"payload"`
	IsPublic  bool       `json:"public"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsPush reports whether the event is push-like activity.
func (e *Event) IsPush() bool {
	return e.Type == PushEventType
}

// Actor is the user that triggered an event.
type Actor struct {
	ID           int64  `json:"id"`
	Login        string `json:"login"`
	DisplayLogin string `json:"display_login"`
	AvatarURL    string `json:"avatar_url"`
}

// Repository is the repo an event occurred in.
type Repository struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Payload carries the event-type-specific fields. Only the push fields
// are consumed here.
type Payload struct {
	Action  string   `json:"action,omitempty"`
	Ref     string   `json:"ref,omitempty"`
	Commits []Commit `json:"commits,omitempty"`
}

// Commit is one commit within a push event payload.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	URL     string `json:"url"`
}
