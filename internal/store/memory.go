package store

import (
	"context"
	"sync"

	"github.com/clipstream/harvester/internal/scraper"
)

// MemoryStore is an in-memory scraper.VideoStore for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[string]scraper.VideoRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string]scraper.VideoRecord)}
}

// StoredVideoIDs returns the subset of ids present in the store.
func (m *MemoryStore) StoredVideoIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.videos[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// UpsertVideo stores the record, replacing any previous version.
func (m *MemoryStore) UpsertVideo(_ context.Context, record scraper.VideoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[record.VideoID] = record
	return nil
}

// Video returns the stored record for id, if present.
func (m *MemoryStore) Video(id string) (scraper.VideoRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.videos[id]
	return rec, ok
}

// Len reports how many videos are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.videos)
}
