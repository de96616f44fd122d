package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultSweepInterval = 5 * time.Minute

// Store resolves client tokens to sessions. Implementations must be safe
// for concurrent first contact from unrelated clients.
type Store interface {
	// Resolve returns the session for a token. An absent or unknown token
	// yields a brand-new session under a freshly generated token, never an
	// error; created reports whether that happened. The caller is
	// responsible for propagating the returned token back to the client.
	Resolve(token string) (sess *Session, resolved string, created bool)

	// Delete evicts a session. Unknown tokens are a no-op.
	Delete(token string)
}

// MemoryStore is the process-wide token -> session map. Sessions live for
// the process lifetime unless a TTL is configured and the sweeper runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl time.Duration
	now func() time.Time
}

type StoreOption func(*MemoryStore)

// WithTTL enables idle eviction for sessions not seen within ttl. Zero
// keeps the default: sessions are never evicted.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Resolve(token string) (*Session, string, bool) {
	if token != "" {
		s.mu.RLock()
		sess, ok := s.sessions[token]
		s.mu.RUnlock()
		if ok {
			sess.Touch(s.now())
			return sess, token, false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock: two first-contact requests carrying
	// the same new token must converge on one session.
	if token != "" {
		if sess, ok := s.sessions[token]; ok {
			sess.Touch(s.now())
			return sess, token, false
		}
	}

	fresh := uuid.NewString()
	sess := newSession(fresh, s.now())
	s.sessions[fresh] = sess
	return sess, fresh, true
}

func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper runs a background TTL sweep until ctx is canceled. It is a
// no-op when the store has no TTL configured.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.Info().Dur("ttl", s.ttl).Dur("interval", interval).Msg("session sweeper started")
		for {
			select {
			case <-ticker.C:
				if evicted := s.sweep(); evicted > 0 {
					log.Info().Int("evicted", evicted).Msg("session sweeper evicted idle sessions")
				}
			case <-ctx.Done():
				log.Info().Msg("session sweeper stopped")
				return
			}
		}
	}()
}

func (s *MemoryStore) sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().UTC().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for token, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, token)
			evicted++
		}
	}
	return evicted
}
