// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package github

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/metrics"
	githubmodels "github.com/habitlab/habitsync/internal/models/github"
)

// CircuitBreakerClient wraps Client with a circuit breaker so a GitHub
// outage cannot tie up every automation run in timeouts.
//
// When the breaker is open, calls return (nil, nil): the automation run
// logs the unavailable dependency and completes, the same as for a
// rejected token. The breaker uses real time for its recovery windows;
// tests exercise the wrapped Client directly.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[interface{}]
}

// NewCircuitBreakerClient creates a GitHub client with circuit breaker
// protection. The breaker opens at a 60% failure rate over at least 10
// requests, and waits 2 minutes before probing recovery.
func NewCircuitBreakerClient(cfg *config.GitHubConfig) *CircuitBreakerClient {
	metrics.SetCircuitBreakerState(0) // closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening GitHub circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.SetCircuitBreakerState(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{
		client: NewClient(cfg),
		cb:     cb,
	}
}

// GetUserProfile fetches the authenticated user's profile through the
// breaker.
func (cbc *CircuitBreakerClient) GetUserProfile(ctx context.Context, token string) (*githubmodels.Profile, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetUserProfile(ctx, token)
	})
	if err != nil || result == nil {
		return nil, err
	}

	profile, ok := result.(*githubmodels.Profile)
	if !ok || profile == nil {
		return nil, nil
	}
	return profile, nil
}

// GetUserEvents fetches one page of user events through the breaker.
func (cbc *CircuitBreakerClient) GetUserEvents(ctx context.Context, login, token string, page, perPage int) ([]githubmodels.Event, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetUserEvents(ctx, login, token, page, perPage)
	})
	if err != nil || result == nil {
		return nil, err
	}

	events, ok := result.([]githubmodels.Event)
	if !ok {
		return nil, nil
	}
	return events, nil
}

// execute runs fn through the breaker. Breaker rejections are mapped to
// the absent-resource path rather than surfaced as errors.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] GitHub request rejected")
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
