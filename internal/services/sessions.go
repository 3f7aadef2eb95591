package services

import (
	"strings"
	"sync"
	"time"

	"freshpos/internal/domain"
)

// terminal is the state of one checkout screen.
type terminal struct {
	lines    []domain.Line // newest first
	lang     string
	notice   string // last scan error, shown once on the screen
	lastSeen time.Time
}

// sessionStore keeps terminals in memory keyed by the sid cookie.
type sessionStore struct {
	mu sync.RWMutex
	m  map[string]*terminal
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: make(map[string]*terminal)}
}

// with runs fn on the terminal for sid under the write lock, creating it
// with lang when missing.
func (s *sessionStore) with(sid, lang string, now time.Time, fn func(*terminal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.m[sid]
	if !ok {
		t = &terminal{lang: lang}
		// sid may point into a request buffer that gets reused
		s.m[strings.Clone(sid)] = t
	}
	t.lastSeen = now
	fn(t)
}

// snapshot copies the terminal for sid; ok is false when it does not exist.
func (s *sessionStore) snapshot(sid string) (terminal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.m[sid]
	if !ok {
		return terminal{}, false
	}
	cp := *t
	cp.lines = append([]domain.Line(nil), t.lines...)
	return cp, true
}

func (s *sessionStore) drop(sid string) {
	s.mu.Lock()
	delete(s.m, sid)
	s.mu.Unlock()
}

// sweep removes terminals idle since before cutoff and returns how many
// remain.
func (s *sessionStore) sweep(cutoff time.Time) (removed, left int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, t := range s.m {
		if t.lastSeen.Before(cutoff) {
			delete(s.m, sid)
			removed++
		}
	}
	return removed, len(s.m)
}

func (s *sessionStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
