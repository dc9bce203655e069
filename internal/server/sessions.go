package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
)

const sessionCookie = "ocr_session"

type sessionEntry struct {
	mu       sync.Mutex
	session  *ocr.Session
	lastSeen time.Time
}

// sessionStore maps cookie ids to sessions. Idle sessions are dropped on
// the next lookup once ttl has passed; a zero ttl keeps them forever.
// onCount is called with the store lock held, so reports arrive in order.
type sessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*sessionEntry
	onCount func(int)
}

func newSessionStore(ttl time.Duration, onCount func(int)) *sessionStore {
	return &sessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
		onCount: onCount,
	}
}

// acquire returns the caller's session, creating one (and setting its
// cookie) if needed. The entry comes back locked; the caller must unlock it.
func (s *sessionStore) acquire(w http.ResponseWriter, r *http.Request) (*sessionEntry, string) {
	s.mu.Lock()
	now := s.now()
	s.prune(now)

	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}

	entry, ok := s.entries[id]
	if !ok {
		id = uuid.NewString()
		entry = &sessionEntry{session: ocr.NewSession()}
		s.entries[id] = entry
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	entry.lastSeen = now
	if s.onCount != nil {
		s.onCount(len(s.entries))
	}
	s.mu.Unlock()

	entry.mu.Lock()
	return entry, id
}

func (s *sessionStore) prune(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, id)
		}
	}
}
