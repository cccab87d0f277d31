// Package session keeps decoded logs in memory for later queries.
//
// Sessions live until the process exits. There is no deletion API and no
// eviction by default; a Policy can observe inserts to add one.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vainnor/flightlog/types"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
	ErrNoID     = errors.New("session id is empty")
)

// Session is one decoded upload.
type Session struct {
	ID        string
	Filename  string
	Digest    string
	CreatedAt time.Time
	Messages  []types.DecodedMessage
	Skipped   types.SkipCounts
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// Policy is notified after every insert. It runs without the store lock held.
type Policy interface {
	OnPut(store *Store, id string)
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	policy   Policy
}

type Option func(*Store)

// WithPolicy installs an insert observer, the hook for a retention policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

func NewStore(opts ...Option) *Store {
	s := &Store{sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts a fully built session. An existing id is never overwritten.
func (s *Store) Put(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrNoID
	}

	s.mu.Lock()
	if _, exists := s.sessions[sess.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, sess.ID)
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if s.policy != nil {
		s.policy.OnPut(s, sess.ID)
	}
	return nil
}

// Get returns the session with the given id. Callers must not modify it.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Len is the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
