// Package session keeps anonymous visitor sessions in memory. Each session
// owns the visitor's booking draft; nothing is persisted.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"psnrwanda/internal/booking"
	"psnrwanda/internal/logger"
)

// Session is one visitor
type Session struct {
	ID    string
	Draft *booking.Draft

	lastSeen time.Time
}

// Store holds live sessions and forgets the idle ones
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewStore creates a store that drops sessions untouched for idle
func NewStore(idle time.Duration, log *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
		logger:   logger.OrNop(log),
	}
}

// Create starts a session with an empty draft
func (s *Store) Create() *Session {
	sess := &Session{
		ID:    uuid.NewString(),
		Draft: booking.NewDraft(0),
	}

	s.mu.Lock()
	sess.lastSeen = s.now()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get returns a live session and marks it as seen
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.idle {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns how many were dropped
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("idle sessions swept", zap.Int("removed", n), zap.Int("live", s.Len()))
			}
		}
	}
}
