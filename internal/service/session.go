package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitsearch/internal/model"
)

// SessionConfig controls session lifetime. Zero values are replaced with defaults.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Clock         func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session model.Session
	// evicted is set under mu by Clear and the sweeper; holders of a stale
	// pointer must look the id up again.
	evicted bool
}

// SessionStore owns all conversation state. The map lock is only held to find or
// insert an entry; each session has its own lock, so turns on different sessions
// never wait on each other and turns on the same session run one at a time.
// Lock order is entry then map.
type SessionStore struct {
	mu      sync.Mutex
	cfg     SessionConfig
	entries map[string]*sessionEntry
}

// NewSessionStore creates an empty store
func NewSessionStore(cfg SessionConfig) *SessionStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &SessionStore{
		cfg:     cfg,
		entries: map[string]*sessionEntry{},
	}
}

// NewSessionID returns a fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

func (s *SessionStore) now() time.Time {
	return s.cfg.Clock().UTC()
}

func (s *SessionStore) expired(sess *model.Session, now time.Time) bool {
	return now.Sub(sess.LastActiveAt) > s.cfg.TTL
}

func (s *SessionStore) lookup(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

func (s *SessionStore) getOrCreate(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	now := s.now()
	e := &sessionEntry{session: model.Session{ID: id, CreatedAt: now, LastActiveAt: now}}
	s.entries[id] = e
	return e
}

// WithSession runs fn with exclusive access to the session, creating it if needed.
// A session past its TTL that the sweeper has not reached yet is reset first, so
// fn always sees either live state or a fresh session.
func (s *SessionStore) WithSession(id string, fn func(sess *model.Session) error) error {
	for {
		if ok, err := s.withEntry(s.getOrCreate(id), id, fn); ok {
			return err
		}
	}
}

// withEntry returns ok=false when the entry was evicted before the lock was taken
func (s *SessionStore) withEntry(e *sessionEntry, id string, fn func(sess *model.Session) error) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false, nil
	}
	now := s.now()
	if s.expired(&e.session, now) {
		e.session = model.Session{ID: id, CreatedAt: now, LastActiveAt: now}
	}
	defer func() { e.session.LastActiveAt = s.now() }()
	return true, fn(&e.session)
}

// Get returns a copy of the session
func (s *SessionStore) Get(id string) (model.Session, error) {
	e := s.lookup(id)
	if e == nil {
		return model.Session{}, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted || s.expired(&e.session, s.now()) {
		return model.Session{}, ErrSessionNotFound
	}
	return e.session.Snapshot(), nil
}

// RecordResult stores the handle of the result set produced for the session's
// last resolved filter.
func (s *SessionStore) RecordResult(id string, handle model.ResultHandle) error {
	e := s.lookup(id)
	if e == nil {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted || s.expired(&e.session, s.now()) {
		return ErrSessionNotFound
	}
	e.session.LastResultHandle = &handle
	e.session.LastActiveAt = s.now()
	return nil
}

// Clear removes a session explicitly. It waits for any in-flight turn on it.
func (s *SessionStore) Clear(id string) error {
	e := s.lookup(id)
	if e == nil {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return ErrSessionNotFound
	}
	s.evictLocked(id, e)
	return nil
}

// evictLocked must be called with e.mu held
func (s *SessionStore) evictLocked(id string, e *sessionEntry) {
	e.evicted = true
	s.mu.Lock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	s.mu.Unlock()
}

// Len returns the number of sessions currently held, expired or not
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts every session idle for longer than the TTL and returns how many
// were removed. Each session is checked under its own lock, so a session is never
// evicted in the middle of a turn.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	candidates := make(map[string]*sessionEntry, len(s.entries))
	for id, e := range s.entries {
		candidates[id] = e
	}
	s.mu.Unlock()

	swept := 0
	for id, e := range candidates {
		e.mu.Lock()
		if !e.evicted && s.expired(&e.session, s.now()) {
			s.evictLocked(id, e)
			swept++
		}
		e.mu.Unlock()
	}
	return swept
}

// StartSweeper runs Sweep every SweepInterval until ctx is cancelled
func (s *SessionStore) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("🧹 Evicted %d idle sessions", n)
				}
			}
		}
	}()
}
