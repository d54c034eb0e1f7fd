// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package automation

import "sync"

// keyLock provides per-key try-lock semantics: a run for a habit id that
// is already executing is skipped, not queued. This replaces the
// disallow-concurrent-execution guarantee a job scheduler would give.
type keyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{held: make(map[string]struct{})}
}

// TryAcquire attempts to take the lock for key without blocking. Returns
// false if the key is already held.
func (l *keyLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (l *keyLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
