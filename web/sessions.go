package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	authenticated bool
	flash         string
	expiresAt     time.Time
}

// sessionStore holds per-browser state keyed by the session cookie value.
type sessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]*session
	now   func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:   ttl,
		items: make(map[string]*session),
		now:   time.Now,
	}
}

// get returns a snapshot of the session and extends its lifetime.
func (s *sessionStore) get(id string) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return session{}, false
	}
	if s.now().After(item.expiresAt) {
		delete(s.items, id)
		return session{}, false
	}
	item.expiresAt = s.now().Add(s.ttl)
	return *item, true
}

// authenticate replaces id, if any, with a fresh authenticated session and
// returns the new id.
func (s *sessionStore) authenticate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()

	delete(s.items, id)
	newID := uuid.NewString()
	s.items[newID] = &session{authenticated: true, expiresAt: s.now().Add(s.ttl)}
	return newID
}

func (s *sessionStore) setFlash(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[id]; ok {
		item.flash = message
	}
}

func (s *sessionStore) popFlash(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ""
	}
	message := item.flash
	item.flash = ""
	return message
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *sessionStore) purgeExpiredLocked() {
	now := s.now()
	for id, item := range s.items {
		if now.After(item.expiresAt) {
			delete(s.items, id)
		}
	}
}
