package memory

import (
	"context"
	"sync"

	"quiz-engine/internal/domain"
)

// DocumentStore keeps documents in process memory; nothing survives a restart.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string][]byte)}
}

func (s *DocumentStore) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[name]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *DocumentStore) Save(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = append([]byte(nil), data...)
	return nil
}
