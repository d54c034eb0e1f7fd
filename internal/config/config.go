// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package config provides configuration management for Habitsync.
//
// Configuration is loaded in layers (Koanf v2):
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	GitHub     GitHubConfig     `koanf:"github"`
	Automation AutomationConfig `koanf:"automation"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings for the admin/integration surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Use ":memory:" for tests.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads limits DuckDB worker threads. 0 = use runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// GitHubConfig holds settings for the GitHub REST client.
//
// EventsPerPage and MaxEventPages are a fixed pagination bound: at most
// MaxEventPages * EventsPerPage events are examined per processor run.
// The bound is preserved from the original automation behavior; do not
// raise it casually, it doubles as a rate-limit safeguard.
type GitHubConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	EventsPerPage     int           `koanf:"events_per_page"`
	MaxEventPages     int           `koanf:"max_event_pages"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// AutomationConfig holds scheduler settings.
type AutomationConfig struct {
	Enabled bool `koanf:"enabled"`
	// ScanIntervalMinutes is the scheduler tick interval in minutes.
	ScanIntervalMinutes int `koanf:"scan_interval_minutes"`
	// MaxConcurrentRuns caps the number of habits processed in parallel
	// within one scan cycle.
	MaxConcurrentRuns int `koanf:"max_concurrent_runs"`
	// RunTimeout is the maximum duration of a single per-habit run.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// ScanInterval returns the scheduler interval as a duration.
func (c AutomationConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMinutes) * time.Minute
}

// EncryptionConfig holds the vault key material.
//
// Key is either a base64-encoded 32-byte AES key or an arbitrary secret
// passphrase from which the key is derived (HKDF-SHA256). It is resolved
// exactly once at startup and handed to the vault; nothing else reads it.
type EncryptionConfig struct {
	Key string `koanf:"key"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
