// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/models"
	githubmodels "github.com/habitlab/habitsync/internal/models/github"
)

func testAutomationConfig() *config.AutomationConfig {
	return &config.AutomationConfig{
		Enabled:             true,
		ScanIntervalMinutes: 60,
		MaxConcurrentRuns:   5,
		RunTimeout:          time.Minute,
	}
}

func newTestScheduler(store *fakeStore, client *fakeClient) *Scheduler {
	return NewScheduler(store, newTestProcessor(store, client), testAutomationConfig())
}

func TestKeyLock(t *testing.T) {
	l := newKeyLock()

	if !l.TryAcquire("a") {
		t.Fatal("first acquire failed")
	}
	if l.TryAcquire("a") {
		t.Error("second acquire of held key succeeded")
	}
	if !l.TryAcquire("b") {
		t.Error("distinct key blocked by unrelated lock")
	}

	l.Release("a")
	if !l.TryAcquire("a") {
		t.Error("acquire after release failed")
	}

	// Releasing an unheld key is a no-op.
	l.Release("never-held")
}

func TestScanDispatchesAllHabits(t *testing.T) {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	habits := []*models.Habit{
		{ID: "h_1", UserID: "user-1", AutomationSource: models.AutomationSourceGitHub},
		{ID: "h_2", UserID: "user-1", AutomationSource: models.AutomationSourceGitHub},
		{ID: "h_3", UserID: "user-1", AutomationSource: models.AutomationSourceGitHub},
	}
	store := newFakeStore(habits...)
	client := &fakeClient{
		profile: &githubmodels.Profile{Login: "octocat"},
		pages:   [][]githubmodels.Event{{pushEvent("101", "octocat", created, "Fix build")}},
	}
	s := newTestScheduler(store, client)

	s.Scan(context.Background())

	// Each habit dedups independently, so every habit gets its own entry
	// for the same external event.
	if store.entryCount() != 3 {
		t.Errorf("got %d entries, want 3 (one per habit)", store.entryCount())
	}
}

func TestScanAbortsWhenListingFails(t *testing.T) {
	store := newFakeStore(testHabit())
	store.listErr = errors.New("connection lost")
	client := &fakeClient{profile: &githubmodels.Profile{Login: "octocat"}}
	s := newTestScheduler(store, client)

	s.Scan(context.Background())

	if profile, _ := client.calls(); profile != 0 {
		t.Error("failed listing still dispatched runs")
	}
}

func TestScanSkippedWhileRunning(t *testing.T) {
	store := newFakeStore(testHabit())
	client := &fakeClient{}
	s := newTestScheduler(store, client)

	s.scanning.Store(true)
	s.Scan(context.Background())

	if profile, _ := client.calls(); profile != 0 {
		t.Error("overlapping scan was not skipped")
	}
	if !s.scanning.Load() {
		t.Error("skipped scan cleared the running flag it does not own")
	}
}

func TestScanOneFailureDoesNotBlockOthers(t *testing.T) {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	// h_bad fails at persist time; h_ok must still get its entry.
	store := newFakeStore(
		&models.Habit{ID: "h_ok", UserID: "user-1", AutomationSource: models.AutomationSourceGitHub},
		&models.Habit{ID: "h_bad", UserID: "user-1", AutomationSource: models.AutomationSourceGitHub},
	)
	store.failHabits = map[string]bool{"h_bad": true}
	client := &fakeClient{
		profile: &githubmodels.Profile{Login: "octocat"},
		pages:   [][]githubmodels.Event{{pushEvent("101", "octocat", created, "Fix build")}},
	}
	s := newTestScheduler(store, client)

	s.Scan(context.Background())

	found := false
	store.mu.Lock()
	for _, e := range store.entries {
		if e.HabitID == "h_ok" {
			found = true
		}
	}
	store.mu.Unlock()
	if !found {
		t.Error("healthy habit was not processed")
	}
}

func TestRunHabitExclusive(t *testing.T) {
	store := newFakeStore(testHabit())
	block := make(chan struct{})
	client := &fakeClient{
		profile: &githubmodels.Profile{Login: "octocat"},
		block:   block,
	}
	s := newTestScheduler(store, client)

	var wg sync.WaitGroup
	wg.Add(1)
	firstDone := make(chan error, 1)
	go func() {
		defer wg.Done()
		firstDone <- s.RunHabit(context.Background(), "h_1")
	}()

	// Wait until the first run is inside the GitHub call, then try again.
	deadline := time.After(2 * time.Second)
	for {
		if profile, _ := client.calls(); profile > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never reached the GitHub call")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.RunHabit(context.Background(), "h_1"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping run returned %v, want ErrRunInProgress", err)
	}

	close(block)
	wg.Wait()
	if err := <-firstDone; err != nil {
		t.Errorf("first run failed: %v", err)
	}

	// The lock is free again once the run completes.
	if err := s.RunHabit(context.Background(), "h_1"); err != nil {
		t.Errorf("run after release failed: %v", err)
	}
}

func TestRunHabitRespectsTimeout(t *testing.T) {
	store := newFakeStore(testHabit())
	client := &fakeClient{
		profile: &githubmodels.Profile{Login: "octocat"},
		block:   make(chan struct{}), // never closed
	}
	cfg := testAutomationConfig()
	cfg.RunTimeout = 50 * time.Millisecond
	s := NewScheduler(store, newTestProcessor(store, client), cfg)

	start := time.Now()
	err := s.RunHabit(context.Background(), "h_1")
	if time.Since(start) > 2*time.Second {
		t.Fatal("run did not respect the configured timeout")
	}
	// The blocked GitHub call is cut off by the timeout and surfaces as
	// a dependency-unavailable condition, not a failure.
	if err != nil {
		t.Errorf("timed-out GitHub call failed the run: %v", err)
	}
}
