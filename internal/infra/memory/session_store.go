package memory

import (
	"sync"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository with a
// join-code index alongside the primary map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	codes    map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		codes:    make(map[string]string),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	s.codes[session.Code()] = session.ID()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ResolveCode(code string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	return id, ok
}
