// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package models

import "time"

// DailyStats is the entry count for one calendar day.
type DailyStats struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// EntryStats summarizes a user's entry timeline.
//
// CurrentStreak counts consecutive active days ending today (UTC); it is
// zero when today has no entry. LongestStreak is the longest consecutive
// run of active days anywhere in the timeline.
type EntryStats struct {
	DailyStats    []DailyStats `json:"dailyStats"`
	TotalEntries  int          `json:"totalEntries"`
	CurrentStreak int          `json:"currentStreak"`
	LongestStreak int          `json:"longestStreak"`
}
