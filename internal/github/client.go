// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

/*
client.go - GitHub REST API Client

This file provides the Client struct and HTTP communication layer for the
two GitHub endpoints the automation pipeline needs:

  - GET /user                        (validate token, resolve login)
  - GET /users/{login}/events       (paginated public activity)

Client Features:
  - Bearer token authentication per request (tokens are never stored here)
  - Client-side rate limiting via golang.org/x/time/rate
  - Context support for cancellation and timeouts
  - JSON parsing via goccy/go-json

Error contract: a non-success HTTP status is NOT an error. The client logs
a warning and returns a nil result, so callers treat an invalid token or
an unknown user the same way as an absent resource. Transport failures
(DNS, timeout, connection reset) are returned as errors. There are no
retries; the next scheduled run retries naturally.
*/
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/metrics"
	githubmodels "github.com/habitlab/habitsync/internal/models/github"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

const (
	endpointUser   = "user"
	endpointEvents = "events"
)

// ClientInterface defines the GitHub API operations used by the
// automation pipeline. Implemented by Client for production use and by
// mocks in tests.
//
// Both methods follow the same contract: (nil, nil) means the resource
// is absent or the token was rejected; a non-nil error means the request
// itself could not be completed.
type ClientInterface interface {
	GetUserProfile(ctx context.Context, token string) (*githubmodels.Profile, error)
	GetUserEvents(ctx context.Context, login, token string, page, perPage int) ([]githubmodels.Event, error)
}

// Client is a GitHub REST API client. Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a GitHub API client from configuration.
func NewClient(cfg *config.GitHubConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetUserProfile fetches the authenticated user's profile. Returns
// (nil, nil) if GitHub rejects the token.
func (c *Client) GetUserProfile(ctx context.Context, token string) (*githubmodels.Profile, error) {
	var profile githubmodels.Profile
	ok, err := c.get(ctx, c.baseURL+"/user", token, endpointUser, &profile)
	if err != nil || !ok {
		return nil, err
	}
	return &profile, nil
}

// GetUserEvents fetches one page of a user's public events. Returns
// (nil, nil) if GitHub rejects the token or the user does not exist.
// An empty slice with a nil error means the page exists but is empty.
func (c *Client) GetUserEvents(ctx context.Context, login, token string, page, perPage int) ([]githubmodels.Event, error) {
	reqURL := fmt.Sprintf("%s/users/%s/events?page=%d&per_page=%d",
		c.baseURL, url.PathEscape(login), page, perPage)

	events := []githubmodels.Event{}
	ok, err := c.get(ctx, reqURL, token, endpointEvents, &events)
	if err != nil || !ok {
		return nil, err
	}
	return events, nil
}

// get performs an authenticated GET and decodes the JSON response into
// result. Returns (false, nil) on a non-success status.
func (c *Client) get(ctx context.Context, reqURL, token, endpoint string, result interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordGitHubRequest(endpoint, "transport_error", time.Since(start))
		return false, fmt.Errorf("GitHub request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	metrics.RecordGitHubRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		logging.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("GitHub returned non-success status")
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return false, fmt.Errorf("failed to parse GitHub response: %w", err)
	}

	return true, nil
}

// readBodyForError reads up to maxErrorBodySize of a response body for
// diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
