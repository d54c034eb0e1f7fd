// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package api provides the thin admin/integration HTTP surface: token
// management, entry statistics, on-demand automation runs and
// operational endpoints. Identity management is out of scope; callers
// are identified by the X-User-ID header set by the fronting proxy.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/habitlab/habitsync/internal/automation"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/stats"
	"github.com/habitlab/habitsync/internal/validation"
)

// userIDHeader identifies the acting user on user-scoped endpoints.
const userIDHeader = "X-User-ID"

// maxRequestBodySize caps request bodies on the admin surface.
const maxRequestBodySize = 64 * 1024 // 64KB

// TokenStore is the credential vault contract the handlers consume.
type TokenStore interface {
	Store(ctx context.Context, userID, token string, ttlDays int) error
	Revoke(ctx context.Context, userID string) error
}

// EntryDatesStore yields a user's raw entry dates for stats computation.
type EntryDatesStore interface {
	GetEntryDates(ctx context.Context, userID string) ([]time.Time, error)
}

// Runner triggers an on-demand automation run for one habit.
type Runner interface {
	RunHabit(ctx context.Context, habitID string) error
}

// Handler holds the admin surface's collaborators.
type Handler struct {
	tokens  TokenStore
	entries EntryDatesStore
	runner  Runner
}

// NewHandler creates a Handler.
func NewHandler(tokens TokenStore, entries EntryDatesStore, runner Runner) *Handler {
	return &Handler{tokens: tokens, entries: entries, runner: runner}
}

// storeTokenRequest is the PUT /api/v1/github/token body.
type storeTokenRequest struct {
	AccessToken   string `json:"accessToken"   validate:"required"`
	ExpiresInDays int    `json:"expiresInDays" validate:"required,min=1,max=365"`
}

// StoreToken handles PUT /api/v1/github/token.
func (h *Handler) StoreToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req storeTokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tokens.Store(r.Context(), userID, req.AccessToken, req.ExpiresInDays); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Failed to store token")
		respondError(w, http.StatusInternalServerError, "failed to store token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeToken handles DELETE /api/v1/github/token.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.tokens.Revoke(r.Context(), userID); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Failed to revoke token")
		respondError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EntryStats handles GET /api/v1/entries/stats.
func (h *Handler) EntryStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	dates, err := h.entries.GetEntryDates(r.Context(), userID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Failed to load entry dates")
		respondError(w, http.StatusInternalServerError, "failed to load entry stats")
		return
	}

	respondJSON(w, http.StatusOK, stats.Compute(dates, time.Now().UTC()))
}

// RunAutomation handles POST /api/v1/habits/{habitID}/automation/run.
func (h *Handler) RunAutomation(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")
	if habitID == "" {
		respondError(w, http.StatusBadRequest, "habit id is required")
		return
	}

	err := h.runner.RunHabit(r.Context(), habitID)
	if errors.Is(err, automation.ErrRunInProgress) {
		respondError(w, http.StatusConflict, "automation run already in progress")
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("habit_id", habitID).Msg("On-demand automation run failed")
		respondError(w, http.StatusInternalServerError, "automation run failed")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
