package web

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

type pendingDownload struct {
	sessionID   string
	fileName    string
	contentType string
	data        []byte
	expiresAt   time.Time
}

// downloadStore keeps built exports in memory until the owning session fetches them or they expire.
type downloadStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]pendingDownload
	now   func() time.Time
}

func newDownloadStore(ttl time.Duration) *downloadStore {
	return &downloadStore{
		ttl:   ttl,
		items: make(map[string]pendingDownload),
		now:   time.Now,
	}
}

func (s *downloadStore) put(sessionID, fileName, contentType string, data []byte) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()

	token = newRandomToken(24)
	s.items[token] = pendingDownload{
		sessionID:   sessionID,
		fileName:    fileName,
		contentType: contentType,
		data:        data,
		expiresAt:   s.now().Add(s.ttl),
	}
	return token
}

func (s *downloadStore) get(token, sessionID string) (pendingDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()

	item, ok := s.items[token]
	if !ok || item.sessionID != sessionID {
		return pendingDownload{}, false
	}
	return item, true
}

// dropSession forgets every download owned by sessionID.
func (s *downloadStore) dropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, item := range s.items {
		if item.sessionID == sessionID {
			delete(s.items, token)
		}
	}
}

func (s *downloadStore) purgeExpiredLocked() {
	now := s.now()
	for token, item := range s.items {
		if now.After(item.expiresAt) {
			delete(s.items, token)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
