package application

import (
	"sync"

	"sprachbot/internal/domain"
)

// SessionStore keeps one in-memory session per chat.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*domain.Session)}
}

// Get returns the session of a chat, creating it in the default mode on
// first use.
func (s *SessionStore) Get(chatID int64) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[chatID]
	if !ok {
		session = domain.NewSession(chatID)
		s.sessions[chatID] = session
	}
	return session
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
