// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/habitlab/habitsync/internal/metrics"
)

// Setup builds the HTTP routing table for the admin surface.
func Setup(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Put("/github/token", handler.StoreToken)
		r.Delete("/github/token", handler.RevokeToken)
		r.Get("/entries/stats", handler.EntryStats)
		r.Post("/habits/{habitID}/automation/run", handler.RunAutomation)
	})

	return r
}

// requestMetrics records request counts and latency per route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
