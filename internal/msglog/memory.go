package msglog

import (
	"context"
	"sort"
	"sync"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
)

// MemoryStore is an in-memory Store, the default backend and the one used
// when no SAVE_MESSAGE_LOG pathname has been given yet.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Save(_ context.Context, key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return rtmaerr.ErrStoreClosed
	}
	m.records[key] = rec
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, rtmaerr.ErrStoreClosed
	}
	rec, ok := m.records[key]
	if !ok {
		return Record{}, rtmaerr.ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, rtmaerr.ErrStoreClosed
	}
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return rtmaerr.ErrStoreClosed
	}
	m.records = make(map[string]Record)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
