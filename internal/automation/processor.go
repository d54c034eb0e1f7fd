// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

/*
processor.go - Per-Habit Ingestion Workflow

The Processor runs the full ingestion workflow for a single habit:

 1. Re-fetch the habit; a missing, archived or automation-disabled habit
    means the schedule was stale and the run ends with no side effects.
 2. Fetch the owner's decrypted GitHub token from the vault.
 3. Resolve the token to a GitHub login via GET /user.
 4. Page through the user's public events until an empty page or the
    page ceiling.
 5. Keep only push events.
 6. Skip events that already have an entry, synthesize entries for the
    rest.
 7. Persist the new entries as one batch.

Missing dependencies (no credential, rejected token, unknown user, no
events) end the run successfully with a log line; only persistence and
other unclassified failures mark the run failed. The uniqueness
constraint on (habit_id, external_id) backstops the existence pre-check
under concurrent runs.
*/
package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/database"
	"github.com/habitlab/habitsync/internal/github"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/metrics"
	"github.com/habitlab/habitsync/internal/models"
	githubmodels "github.com/habitlab/habitsync/internal/models/github"
	"github.com/habitlab/habitsync/internal/vault"
)

// Store is the persistence contract the automation pipeline consumes.
// Implemented by *database.DB.
type Store interface {
	GetHabit(ctx context.Context, id string) (*models.Habit, error)
	ListAutomationHabits(ctx context.Context) ([]models.Habit, error)
	EntryExists(ctx context.Context, habitID, externalID string) (bool, error)
	InsertEntries(ctx context.Context, entries []models.Entry) (int, error)
}

// TokenSource yields a user's decrypted GitHub token.
// Implemented by *vault.Vault.
type TokenSource interface {
	Get(ctx context.Context, userID string) (string, error)
}

// Processor executes the ingestion workflow for one habit at a time.
// Safe for concurrent use across distinct habit ids; per-habit
// exclusivity is the Scheduler's job.
type Processor struct {
	store  Store
	tokens TokenSource
	client github.ClientInterface

	eventsPerPage int
	maxEventPages int
}

// NewProcessor creates a Processor with the given collaborators.
func NewProcessor(store Store, tokens TokenSource, client github.ClientInterface, cfg *config.GitHubConfig) *Processor {
	return &Processor{
		store:         store,
		tokens:        tokens,
		client:        client,
		eventsPerPage: cfg.EventsPerPage,
		maxEventPages: cfg.MaxEventPages,
	}
}

// Process runs the ingestion workflow for habitID. A nil return means
// the run completed, including the "nothing to do" outcomes; a non-nil
// error means the run failed and should be counted as such.
func (p *Processor) Process(ctx context.Context, habitID string) error {
	habit, err := p.store.GetHabit(ctx, habitID)
	if errors.Is(err, database.ErrHabitNotFound) {
		logging.Debug().Str("habit_id", habitID).Msg("Habit no longer exists, skipping run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load habit %s: %w", habitID, err)
	}
	if !habit.AutomationEnabled() {
		logging.Debug().Str("habit_id", habitID).Msg("Automation disabled or habit archived, skipping run")
		return nil
	}

	token, err := p.tokens.Get(ctx, habit.UserID)
	if errors.Is(err, vault.ErrNoCredential) {
		logging.Info().Str("habit_id", habitID).Msg("No GitHub credential stored, nothing to do")
		return nil
	}
	if err != nil {
		// Includes decryption failures, which must surface rather than
		// masquerade as a missing credential.
		return fmt.Errorf("failed to get credential for habit %s: %w", habitID, err)
	}

	profile, err := p.client.GetUserProfile(ctx, token)
	if err != nil {
		logging.Warn().Err(err).Str("habit_id", habitID).Msg("GitHub profile fetch failed, skipping run")
		return nil
	}
	if profile == nil {
		logging.Warn().Str("habit_id", habitID).Msg("GitHub rejected the stored token, skipping run")
		return nil
	}

	events, err := p.collectEvents(ctx, profile.Login, token)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logging.Info().Str("habit_id", habitID).Str("login", profile.Login).Msg("No GitHub events found")
		return nil
	}

	entries, err := p.synthesizeEntries(ctx, habit, events)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logging.Debug().Str("habit_id", habitID).Msg("All push events already recorded")
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before persist for habit %s: %w", habitID, err)
	}

	inserted, err := p.store.InsertEntries(ctx, entries)
	if err != nil {
		return fmt.Errorf("failed to persist %d entries for habit %s: %w", len(entries), habitID, err)
	}

	metrics.EntriesCreatedTotal.Add(float64(inserted))
	logging.Info().
		Str("habit_id", habitID).
		Str("login", profile.Login).
		Int("entries", inserted).
		Msg("Recorded automation entries")

	return nil
}

// collectEvents pages through the user's events. Pagination stops at the
// first empty page or the page ceiling, whichever comes first. A failed
// or rejected page fetch ends collection with what was gathered so far.
func (p *Processor) collectEvents(ctx context.Context, login, token string) ([]githubmodels.Event, error) {
	var collected []githubmodels.Event

	for page := 1; page <= p.maxEventPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled during event pagination: %w", err)
		}

		events, err := p.client.GetUserEvents(ctx, login, token, page, p.eventsPerPage)
		if err != nil {
			logging.Warn().Err(err).Str("login", login).Int("page", page).Msg("GitHub events fetch failed")
			break
		}
		if len(events) == 0 {
			break
		}

		collected = append(collected, events...)
	}

	return collected, nil
}

// synthesizeEntries filters events to pushes and builds entries for the
// ones with no existing entry.
func (p *Processor) synthesizeEntries(ctx context.Context, habit *models.Habit, events []githubmodels.Event) ([]models.Entry, error) {
	var entries []models.Entry

	for i := range events {
		event := &events[i]
		if !event.IsPush() {
			continue
		}

		exists, err := p.store.EntryExists(ctx, habit.ID, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check entry existence for habit %s: %w", habit.ID, err)
		}
		if exists {
			metrics.EntriesDeduplicatedTotal.Inc()
			continue
		}

		externalID := event.ID
		notes := formatPushNotes(event)
		entries = append(entries, models.Entry{
			HabitID:    habit.ID,
			UserID:     habit.UserID,
			Value:      1,
			Notes:      &notes,
			Source:     models.EntrySourceAutomation,
			ExternalID: &externalID,
			Date:       truncateToDay(event.CreatedAt),
		})
	}

	return entries, nil
}

// formatPushNotes renders the entry notes for a push event: the actor's
// login on the first line, one bullet per commit message after.
func formatPushNotes(event *githubmodels.Event) string {
	var b strings.Builder
	b.WriteString(event.Actor.Login)
	b.WriteString(" pushed:")

	for _, commit := range event.Payload.Commits {
		b.WriteString("\n- ")
		b.WriteString(commit.Message)
	}

	return b.String()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
