package server

import (
	"context"
	"encoding/json"
	"sync"
)

// memStore is an in-memory stand-in for store.RoomStore used by actor
// tests so they don't need a sqlite file on disk.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) LoadRoom(_ context.Context, kind, roomID string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[kind+":"+roomID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *memStore) SaveRoom(_ context.Context, kind, roomID string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.data[kind+":"+roomID] = raw
	return nil
}
