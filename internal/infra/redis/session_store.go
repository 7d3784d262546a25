package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-engine/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map since their timers and subscribers are process
// bound; Redis holds a liveness marker carrying the quiz id:
//
//	SET quiz:session:{sessionID} {quizID} EX ttl
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
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
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	if err := s.client.Set(context.Background(), s.key(session.ID()), session.QuizID(), s.ttl).Err(); err != nil {
		log.Printf("failed to mark session %s live: %v", session.ID(), err)
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if err := s.client.Del(context.Background(), s.key(sessionID)).Err(); err != nil {
		log.Printf("failed to clear session %s: %v", sessionID, err)
	}
}

// Live counts sessions marked live in Redis, across all instances sharing it.
func (s *SessionStore) Live(ctx context.Context) (int, error) {
	var n int
	iter := s.client.Scan(ctx, 0, "quiz:session:*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
