package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classlight/quiz-session-service/internal/session"
)

// RedisStore is a Redis-aware SessionStore. Engines stay in the local map,
// since a session's countdown and phase transitions live in one process.
// Redis carries best-effort liveness markers so operators and sibling
// instances can see which attempts are active.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Engine
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Engine),
	}
}

func (s *RedisStore) Put(id string, eng *session.Engine) {
	s.mu.Lock()
	s.sessions[id] = eng
	s.mu.Unlock()
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
}

func (s *RedisStore) Get(id string) (*session.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, ok := s.sessions[id]
	return eng, ok
}

func (s *RedisStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *RedisStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *RedisStore) key(id string) string {
	return "quiz:session:" + id
}
