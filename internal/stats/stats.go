// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package stats derives daily aggregates and streaks from a user's entry
// timeline. Compute is a pure function of the entry dates and a caller
// supplied reference day, which keeps the streak logic trivially
// testable; callers pass the current UTC day in production.
package stats

import (
	"sort"
	"time"

	"github.com/habitlab/habitsync/internal/models"
)

// Compute calculates daily counts, current streak and longest streak
// from raw entry dates. Multiple entries on the same calendar day count
// toward TotalEntries and the daily aggregate but collapse into one
// active day for streak purposes. The today parameter anchors the
// current streak; only its date part is used.
func Compute(dates []time.Time, today time.Time) *models.EntryStats {
	if len(dates) == 0 {
		return &models.EntryStats{DailyStats: []models.DailyStats{}}
	}

	counts := make(map[time.Time]int, len(dates))
	for _, d := range dates {
		counts[truncateToDay(d)]++
	}

	activeDays := make([]time.Time, 0, len(counts))
	for day := range counts {
		activeDays = append(activeDays, day)
	}
	sort.Slice(activeDays, func(i, j int) bool { return activeDays[i].Before(activeDays[j]) })

	daily := make([]models.DailyStats, 0, len(activeDays))
	for i := len(activeDays) - 1; i >= 0; i-- {
		daily = append(daily, models.DailyStats{
			Date:  activeDays[i],
			Count: counts[activeDays[i]],
		})
	}

	return &models.EntryStats{
		DailyStats:    daily,
		TotalEntries:  len(dates),
		CurrentStreak: currentStreak(activeDays, truncateToDay(today)),
		LongestStreak: longestStreak(activeDays),
	}
}

// currentStreak walks backward from today through consecutive active
// days. A timeline whose most recent active day is not today has no
// current streak.
func currentStreak(activeDays []time.Time, today time.Time) int {
	active := make(map[time.Time]bool, len(activeDays))
	for _, day := range activeDays {
		active[day] = true
	}

	if !active[today] {
		return 0
	}

	streak := 0
	for day := today; active[day]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// longestStreak scans active days in ascending order, extending a run
// whenever a day immediately follows the previous one.
func longestStreak(activeDays []time.Time) int {
	longest := 0
	run := 0

	for i, day := range activeDays {
		if i > 0 && day.Equal(activeDays[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return longest
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
