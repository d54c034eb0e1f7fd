// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validation errors.
var (
	ErrMissingEncryptionKey = errors.New("encryption key is required (ENCRYPTION_KEY)")
	ErrInvalidGitHubURL     = errors.New("github base_url must be a valid http(s) URL")
)

// Validate checks the configuration for invalid or inconsistent values.
// It is called by Load() after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in range 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if err := validateGitHub(&c.GitHub); err != nil {
		return err
	}

	if c.Automation.ScanIntervalMinutes <= 0 {
		return fmt.Errorf("automation scan interval must be positive, got %d minutes", c.Automation.ScanIntervalMinutes)
	}
	if c.Automation.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("automation max concurrent runs must be positive, got %d", c.Automation.MaxConcurrentRuns)
	}
	if c.Automation.RunTimeout <= 0 {
		return fmt.Errorf("automation run timeout must be positive, got %s", c.Automation.RunTimeout)
	}

	if c.Encryption.Key == "" {
		return ErrMissingEncryptionKey
	}

	return nil
}

func validateGitHub(cfg *GitHubConfig) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidGitHubURL, cfg.BaseURL)
	}
	if cfg.EventsPerPage < 1 || cfg.EventsPerPage > 100 {
		return fmt.Errorf("github events_per_page must be in range 1-100, got %d", cfg.EventsPerPage)
	}
	if cfg.MaxEventPages < 1 {
		return fmt.Errorf("github max_event_pages must be positive, got %d", cfg.MaxEventPages)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("github timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("github requests_per_second must be positive, got %g", cfg.RequestsPerSecond)
	}
	return nil
}
