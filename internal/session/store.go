// Package session keeps per-session conversation history in memory, with
// lazy creation, oldest-first truncation at a fixed cap, and a per-session
// turn lock so concurrent inputs for one session id are serialized.
package session

import (
	"sync"

	"github.com/byOdysea/laserfocus-host/internal/llm"
)

const defaultMaxHistory = 50

// Store holds every live session, keyed by id. Sessions are created on first
// use and live until process teardown.
type Store struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string]*Session
}

// Session is one conversation's ordered history. Insertion order is
// conversation order and is never reordered.
type Session struct {
	id         string
	maxHistory int

	// turnMu serializes whole turns; histMu guards the slice itself so
	// snapshots stay safe while a turn is in flight.
	turnMu  sync.Mutex
	histMu  sync.Mutex
	history []llm.ChatMessage
}

// NewStore creates a session store capping each history at maxHistory
// messages.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Store{
		maxHistory: maxHistory,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &Session{id: id, maxHistory: s.maxHistory}
	s.sessions[id] = sess
	return sess
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// BeginTurn blocks until no other turn is running for this session.
func (s *Session) BeginTurn() {
	s.turnMu.Lock()
}

// EndTurn releases the turn lock.
func (s *Session) EndTurn() {
	s.turnMu.Unlock()
}

// Append adds one message, dropping the oldest entries once the cap is
// exceeded.
func (s *Session) Append(msg llm.ChatMessage) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	s.history = append(s.history, msg)
	if overflow := len(s.history) - s.maxHistory; overflow > 0 {
		s.history = append([]llm.ChatMessage(nil), s.history[overflow:]...)
	}
}

// Snapshot returns a copy of the history for one model call.
func (s *Session) Snapshot() []llm.ChatMessage {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	return append([]llm.ChatMessage(nil), s.history...)
}

// Len reports the current history length.
func (s *Session) Len() int {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	return len(s.history)
}
