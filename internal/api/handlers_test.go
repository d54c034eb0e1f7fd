// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/habitlab/habitsync/internal/automation"
	"github.com/habitlab/habitsync/internal/models"
)

type fakeTokenStore struct {
	stored  map[string]string
	ttls    map[string]int
	revoked []string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{stored: make(map[string]string), ttls: make(map[string]int)}
}

func (f *fakeTokenStore) Store(_ context.Context, userID, token string, ttlDays int) error {
	f.stored[userID] = token
	f.ttls[userID] = ttlDays
	return nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	delete(f.stored, userID)
	return nil
}

type fakeEntryDates struct {
	dates []time.Time
}

func (f *fakeEntryDates) GetEntryDates(_ context.Context, _ string) ([]time.Time, error) {
	return f.dates, nil
}

type fakeRunner struct {
	ran []string
	err error
}

func (f *fakeRunner) RunHabit(_ context.Context, habitID string) error {
	if f.err != nil {
		return f.err
	}
	f.ran = append(f.ran, habitID)
	return nil
}

func newTestServer(tokens *fakeTokenStore, entries *fakeEntryDates, runner *fakeRunner) *httptest.Server {
	if tokens == nil {
		tokens = newFakeTokenStore()
	}
	if entries == nil {
		entries = &fakeEntryDates{}
	}
	if runner == nil {
		runner = &fakeRunner{}
	}
	return httptest.NewServer(Setup(NewHandler(tokens, entries, runner)))
}

func doRequest(t *testing.T, method, url, userID, body string) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestStoreToken(t *testing.T) {
	tokens := newFakeTokenStore()
	server := newTestServer(tokens, nil, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/github/token", "user-1",
		`{"accessToken":"ghp_secret","expiresInDays":30}`)

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if tokens.stored["user-1"] != "ghp_secret" {
		t.Errorf("stored token = %q", tokens.stored["user-1"])
	}
	if tokens.ttls["user-1"] != 30 {
		t.Errorf("stored ttl = %d, want 30", tokens.ttls["user-1"])
	}
}

func TestStoreTokenValidation(t *testing.T) {
	server := newTestServer(nil, nil, nil)
	defer server.Close()

	cases := []struct {
		name string
		body string
	}{
		{"missing token", `{"expiresInDays":30}`},
		{"zero ttl", `{"accessToken":"ghp_x","expiresInDays":0}`},
		{"ttl too large", `{"accessToken":"ghp_x","expiresInDays":9999}`},
		{"malformed json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/github/token", "user-1", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestStoreTokenRequiresUser(t *testing.T) {
	server := newTestServer(nil, nil, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/github/token", "",
		`{"accessToken":"ghp_secret","expiresInDays":30}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without user header", resp.StatusCode)
	}
}

func TestRevokeToken(t *testing.T) {
	tokens := newFakeTokenStore()
	tokens.stored["user-1"] = "ghp_secret"
	server := newTestServer(tokens, nil, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodDelete, server.URL+"/api/v1/github/token", "user-1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(tokens.revoked) != 1 || tokens.revoked[0] != "user-1" {
		t.Errorf("revoked = %v", tokens.revoked)
	}
}

func TestEntryStats(t *testing.T) {
	today := time.Now().UTC()
	entries := &fakeEntryDates{dates: []time.Time{today, today.AddDate(0, 0, -1)}}
	server := newTestServer(nil, entries, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodGet, server.URL+"/api/v1/entries/stats", "user-1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got models.EntryStats
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.TotalEntries != 2 {
		t.Errorf("totalEntries = %d, want 2", got.TotalEntries)
	}
	if got.CurrentStreak != 2 {
		t.Errorf("currentStreak = %d, want 2", got.CurrentStreak)
	}
}

func TestRunAutomation(t *testing.T) {
	runner := &fakeRunner{}
	server := newTestServer(nil, nil, runner)
	defer server.Close()

	resp := doRequest(t, http.MethodPost, server.URL+"/api/v1/habits/h_1/automation/run", "", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "h_1" {
		t.Errorf("ran = %v, want [h_1]", runner.ran)
	}
}

func TestRunAutomationConflict(t *testing.T) {
	runner := &fakeRunner{err: automation.ErrRunInProgress}
	server := newTestServer(nil, nil, runner)
	defer server.Close()

	resp := doRequest(t, http.MethodPost, server.URL+"/api/v1/habits/h_1/automation/run", "", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(nil, nil, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodGet, server.URL+"/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(nil, nil, nil)
	defer server.Close()

	resp := doRequest(t, http.MethodGet, server.URL+"/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
