package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in-process so the aggregate's lock and
//     broadcast channels keep working; Redis carries the join-code directory
//     and a liveness marker per session.
//   - The code directory makes join-by-code work when another instance (or a
//     restart) created the session record, and is the natural seam for a
//     cross-instance pub/sub projector later.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	ctx := context.Background()
	// best-effort: lookups fall back to the local index if Redis is down
	_ = s.client.Set(ctx, s.liveKey(session.ID()), "1", s.ttl).Err()
	_ = s.client.Set(ctx, s.codeKey(session.Code()), session.ID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ResolveCode(code string) (string, bool) {
	id, err := s.client.Get(context.Background(), s.codeKey(code)).Result()
	if err == nil && id != "" {
		return id, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for sessionID, session := range s.sessions {
		if session.Code() == code {
			return sessionID, true
		}
	}
	return "", false
}

func (s *SessionStore) liveKey(sessionID string) string {
	return "session:live:" + sessionID
}

func (s *SessionStore) codeKey(code string) string {
	return "session:code:" + code
}
