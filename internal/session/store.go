// Package session owns the per-sender conversation state and its durable table.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carevo-bot/internal/domain"
	"carevo-bot/internal/repository"
)

// ErrNotFound is returned by Update when the session id is unknown.
var ErrNotFound = errors.New("session: not found")

// Store is the in-memory session table backed by a whole-table record.
//
// The mutex keeps the table memory-safe; it does not serialize a
// retrieve-mutate-update cycle, so two concurrent requests for one sender
// can still overwrite each other (last writer wins).
type Store struct {
	record    repository.Record
	languages domain.LanguageChecker

	mu       sync.Mutex
	sessions []domain.Session

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithLanguages enables the supported-language check on Update.
func WithLanguages(l domain.LanguageChecker) Option {
	return func(s *Store) {
		s.languages = l
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store. Call Load to populate it.
func New(record repository.Record, opts ...Option) (*Store, error) {
	if record == nil {
		return nil, errors.New("session: record must not be nil")
	}
	s := &Store{
		record: record,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load replaces the table with the durable snapshot. A record that was never
// written yields an empty table. On failure the table is left empty.
func (s *Store) Load(ctx context.Context) error {
	var table domain.SessionTable
	err := s.record.Read(ctx, &table)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil

	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: Load: %w", err)
	}
	seen := make(map[string]bool, len(table.Sessions))
	for _, sess := range table.Sessions {
		if seen[sess.PhoneNumber] {
			return fmt.Errorf("session: Load: duplicate sender %q", sess.PhoneNumber)
		}
		seen[sess.PhoneNumber] = true
	}
	s.sessions = table.Sessions
	return nil
}

// Create allocates a session for a sender that has none yet and persists the table.
// The append is rolled back if persistence fails.
func (s *Store) Create(ctx context.Context, sender string) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:          s.newID(),
		PhoneNumber: sender,
		Language:    domain.DefaultLanguage,
		LastMessage: domain.LastMessage{Options: []string{}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := domain.ValidateSession(sess, s.languages); err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(sender) >= 0 {
		return domain.Session{}, &domain.ValidationError{
			Entity: "session",
			ID:     sess.ID,
			Issues: []string{fmt.Sprintf("sender %q already has a session", sender)},
		}
	}

	s.sessions = append(s.sessions, sess)
	if err := s.persistLocked(ctx); err != nil {
		s.sessions = s.sessions[:len(s.sessions)-1]
		return domain.Session{}, fmt.Errorf("session: Create: %w", err)
	}
	return sess.Clone(), nil
}

// Retrieve looks a session up by id or by sender phone number.
func (s *Store) Retrieve(identifier string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(identifier); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return domain.Session{}, false
}

// Update stamps, validates and stores sess, then persists the table. On any
// failure the previous record stays in place.
func (s *Store) Update(ctx context.Context, sess domain.Session) (domain.Session, error) {
	sess = sess.Clone()
	now := s.now()
	if now.Before(sess.CreatedAt) {
		now = sess.CreatedAt
	}
	sess.UpdatedAt = now
	if err := domain.ValidateSession(sess, s.languages); err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByIDLocked(sess.ID)
	if i < 0 {
		return domain.Session{}, fmt.Errorf("session: Update %s: %w", sess.ID, ErrNotFound)
	}
	prev := s.sessions[i]
	s.sessions[i] = sess
	if err := s.persistLocked(ctx); err != nil {
		s.sessions[i] = prev
		return domain.Session{}, fmt.Errorf("session: Update: %w", err)
	}
	return sess.Clone(), nil
}

// Delete removes every session whose id or sender matches identifier and
// persists the table. It returns the number of sessions removed.
func (s *Store) Delete(ctx context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !sess.Matches(identifier) {
			kept = append(kept, sess)
		}
	}
	removed := len(s.sessions) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	prev := s.sessions
	s.sessions = kept
	if err := s.persistLocked(ctx); err != nil {
		s.sessions = prev
		return 0, fmt.Errorf("session: Delete: %w", err)
	}
	return removed, nil
}

// List returns a copy of every session ordered by creation time.
func (s *Store) List() []domain.Session {
	s.mu.Lock()
	out := make([]domain.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) indexLocked(identifier string) int {
	for i, sess := range s.sessions {
		if sess.Matches(identifier) {
			return i
		}
	}
	return -1
}

func (s *Store) indexByIDLocked(id string) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) error {
	table := domain.SessionTable{Sessions: s.sessions}
	if table.Sessions == nil {
		table.Sessions = []domain.Session{}
	}
	return s.record.Write(ctx, table)
}
