// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habitlab/habitsync/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.GitHubConfig{
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 100,
	})
	return client, server
}

func TestGetUserProfile(t *testing.T) {
	var gotAuth, gotAccept string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat","name":"The Octocat","avatar_url":"https://example.com/a.png"}`))
	}))

	profile, err := client.GetUserProfile(context.Background(), "ghp_token")
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("GetUserProfile returned nil profile")
	}
	if profile.Login != "octocat" {
		t.Errorf("login = %q, want %q", profile.Login, "octocat")
	}
	if gotAuth != "Bearer ghp_token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestGetUserProfileRejectedToken(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))

	profile, err := client.GetUserProfile(context.Background(), "bad-token")
	if err != nil {
		t.Fatalf("rejected token must not be an error, got %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil profile for rejected token, got %+v", profile)
	}
	if requests != 1 {
		t.Errorf("expected exactly 1 request (no retries), got %d", requests)
	}
}

func TestGetUserProfileTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	client := NewClient(&config.GitHubConfig{
		BaseURL:           server.URL,
		Timeout:           time.Second,
		RequestsPerSecond: 100,
	})

	if _, err := client.GetUserProfile(context.Background(), "token"); err == nil {
		t.Error("expected transport error for unreachable server")
	}
}

func TestGetUserEvents(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/events" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"101","type":"PushEvent","actor":{"login":"octocat"},
			 "repo":{"name":"octocat/hello"},"public":true,
			 "created_at":"2026-08-30T14:05:00Z",
			 "payload":{"ref":"refs/heads/main","commits":[{"sha":"abc123","message":"Fix build"}]}},
			{"id":"102","type":"WatchEvent","actor":{"login":"octocat"},
			 "repo":{"name":"octocat/hello"},"public":true,
			 "created_at":"2026-08-30T15:00:00Z","payload":{"action":"started"}}
		]`))
	}))

	events, err := client.GetUserEvents(context.Background(), "octocat", "token", 2, 100)
	if err != nil {
		t.Fatalf("GetUserEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	first := events[0]
	if !first.IsPush() {
		t.Error("first event should be a push")
	}
	if first.ID != "101" {
		t.Errorf("event id = %q, want 101", first.ID)
	}
	if len(first.Payload.Commits) != 1 || first.Payload.Commits[0].Message != "Fix build" {
		t.Errorf("unexpected commits: %+v", first.Payload.Commits)
	}
	want := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", first.CreatedAt, want)
	}

	if events[1].IsPush() {
		t.Error("watch event must not classify as push")
	}
}

func TestGetUserEventsEmptyPage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	events, err := client.GetUserEvents(context.Background(), "octocat", "token", 1, 100)
	if err != nil {
		t.Fatalf("GetUserEvents failed: %v", err)
	}
	if events == nil {
		t.Fatal("empty page must decode to an empty slice, not nil")
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestGetUserEventsUnknownUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))

	events, err := client.GetUserEvents(context.Background(), "nobody", "token", 1, 100)
	if err != nil {
		t.Fatalf("unknown user must not be an error, got %v", err)
	}
	if events != nil {
		t.Errorf("expected nil events for unknown user, got %v", events)
	}
}

func TestGetUserEventsMalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))

	if _, err := client.GetUserEvents(context.Background(), "octocat", "token", 1, 100); err == nil {
		t.Error("expected parse error for malformed JSON")
	}
}

func TestGetUserEventsContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.GetUserEvents(ctx, "octocat", "token", 1, 100); err == nil {
		t.Error("expected error for cancelled context")
	}
}
