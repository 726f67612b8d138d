// Package session tracks a signup in progress. A session binds an opaque
// cookie id to a provisional account and mirrors its current signup step;
// the mirror is a cache and is refreshed from the account record by the
// step gate before any step-scoped operation.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the opaque session id.
const CookieName = "onboarding_session"

// DefaultTTL is how long a signup session stays valid without renewal.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when no live session matches the id.
var ErrNotFound = errors.New("session not found")

// Session binds a request to a provisional account mid-onboarding.
type Session struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	CurrentSignupStep int       `json:"currentSignupStep"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// Store persists sessions. The in-memory implementation serves tests and
// single-process deployments; the Redis implementation survives restarts.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

// New creates a session for the given provisional account.
func New(userID string, step int, ttl time.Duration) *Session {
	return &Session{
		ID:                uuid.NewString(),
		UserID:            userID,
		CurrentSignupStep: step,
		ExpiresAt:         time.Now().Add(ttl),
	}
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore builds an in-memory session store and starts its
// expiry sweeper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{sessions: make(map[string]Session)}
	go s.cleanupLoop()
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	for {
		time.Sleep(10 * time.Minute)
		now := time.Now()
		s.mu.Lock()
		for id, sess := range s.sessions {
			if now.After(sess.ExpiresAt) {
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}
