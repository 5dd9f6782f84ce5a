package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. It backs the CLI when no Redis is
// configured and stores encoded copies so callers never share a value.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts storeOptions
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		opts: defaultStoreOptions(),
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.opts.key(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	payload, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeState(payload)
}

func (s *MemoryStore) Save(ctx context.Context, st *SessionState) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	key, err := s.opts.key(st.SessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data[key] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.opts.key(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
