// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Command server runs the Habitsync automation service: the scheduler,
// the admin HTTP surface and their shared persistence, assembled under a
// suture supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/habitlab/habitsync/internal/api"
	"github.com/habitlab/habitsync/internal/automation"
	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/database"
	"github.com/habitlab/habitsync/internal/github"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/supervisor"
	"github.com/habitlab/habitsync/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("automation_enabled", cfg.Automation.Enabled).
		Int("scan_interval_minutes", cfg.Automation.ScanIntervalMinutes).
		Msg("Starting Habitsync")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	cipher, err := vault.NewCipher(cfg.Encryption.Key)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize encryption")
	}
	if err := cipher.SelfCheck(); err != nil {
		logging.Fatal().Err(err).Msg("Encryption self-check failed")
	}
	tokenVault := vault.New(db, cipher)

	ghClient := github.NewCircuitBreakerClient(&cfg.GitHub)
	processor := automation.NewProcessor(db, tokenVault, ghClient, &cfg.GitHub)
	scheduler := automation.NewScheduler(db, processor, &cfg.Automation)

	handler := api.NewHandler(tokenVault, db, scheduler)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Setup(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.Timeout))
	if cfg.Automation.Enabled {
		tree.AddAutomationService(scheduler)
	} else {
		logging.Warn().Msg("Automation scheduler disabled by configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("Habitsync running")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	logging.Info().Msg("Habitsync stopped")
}
