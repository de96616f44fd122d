package state

import (
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
)

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry. Turns are append-only and never mutated
// after creation.
type Turn struct {
	Text    string  `json:"text"`
	Speaker Speaker `json:"speaker"`
}

func (t Turn) IsUser() bool {
	return t.Speaker == SpeakerUser
}

// Session is one user's isolated conversational and cart state, keyed by an
// opaque client-held token. All mutation happens under the session mutex:
// at most one turn or cart operation runs against a session at a time,
// while unrelated sessions proceed in parallel.
type Session struct {
	mu sync.Mutex

	Token      string
	Transcript []Turn
	History    []*schema.Message // opaque agent context, replaced wholesale per turn
	Cart       *cartx.Cart

	CreatedAt time.Time

	// lastSeen has its own lock: the store touches it on Resolve and the
	// sweeper reads it, both without the per-session turn mutex.
	seenMu   sync.Mutex
	lastSeen time.Time
}

func newSession(token string, now time.Time) *Session {
	return &Session{
		Token:     token,
		Cart:      cartx.New(),
		CreatedAt: now.UTC(),
		lastSeen:  now.UTC(),
	}
}

// Lock acquires the per-session mutex. Callers hold it for the full
// duration of a turn or cart mutation and release on every exit path.
func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) Touch(now time.Time) {
	s.seenMu.Lock()
	s.lastSeen = now.UTC()
	s.seenMu.Unlock()
}

// LastSeen reports the time of the session's most recent activity.
func (s *Session) LastSeen() time.Time {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return s.lastSeen
}

// Append adds a turn to the transcript.
func (s *Session) Append(speaker Speaker, text string) Turn {
	turn := Turn{Text: text, Speaker: speaker}
	s.Transcript = append(s.Transcript, turn)
	return turn
}

// ClearChat wipes the transcript and the agent history. The cart is
// deliberately untouched.
func (s *Session) ClearChat() {
	s.Transcript = nil
	s.History = nil
}

// Snapshot returns a copy of the transcript safe to render outside the lock.
func (s *Session) Snapshot() []Turn {
	out := make([]Turn, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}
