package store

import (
	"sync"

	"github.com/classlight/quiz-session-service/internal/session"
)

// MemoryStore is the in-memory SessionStore implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Engine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Engine),
	}
}

func (s *MemoryStore) Put(id string, eng *session.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = eng
}

func (s *MemoryStore) Get(id string) (*session.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, ok := s.sessions[id]
	return eng, ok
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
