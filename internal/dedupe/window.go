// Package dedupe suppresses platform retries of a message that is still being handled.
package dedupe

import (
	"sync"
	"time"
)

// DefaultWindow is how long a (sender, text) pair counts as in flight.
const DefaultWindow = 5 * time.Minute

type key struct {
	sender string
	text   string
}

// Window is a lazily expiring record of recently seen (sender, text) pairs.
// Safe for concurrent use.
type Window struct {
	mu         sync.Mutex
	entries    map[key]time.Time // expiry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type Option func(*Window)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

// WithMaxEntries prunes expired entries on insert once the table holds n pairs.
func WithMaxEntries(n int) Option {
	return func(w *Window) {
		w.maxEntries = n
	}
}

// New creates a Window. A non-positive ttl falls back to DefaultWindow.
func New(ttl time.Duration, opts ...Option) *Window {
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	w := &Window{
		entries: make(map[key]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Check returns true when the pair was seen within the window and should be dropped.
// Otherwise it records the pair with a fresh expiry and returns false.
func (w *Window) Check(sender, text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	k := key{sender: sender, text: text}
	if expiry, ok := w.entries[k]; ok && now.Before(expiry) {
		return true
	}

	if w.maxEntries > 0 && len(w.entries) >= w.maxEntries {
		w.pruneLocked(now)
	}
	w.entries[k] = now.Add(w.ttl)
	return false
}

// Len returns the number of tracked pairs, expired ones included.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *Window) pruneLocked(now time.Time) {
	for k, expiry := range w.entries {
		if !now.Before(expiry) {
			delete(w.entries, k)
		}
	}
}
