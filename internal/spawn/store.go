package spawn

import (
	"context"
	"sync"

	"github.com/craftmods/cobblespawner/internal/model"
)

// MemoryStore is an in-memory Store: the persistence fallback when the
// daemon runs without a database, and the store tests build engines on.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[model.SpawnerKey]model.SpawnerSnapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[model.SpawnerKey]model.SpawnerSnapshot),
	}
}

// LoadAll returns every stored snapshot.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]model.SpawnerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SpawnerSnapshot, 0, len(s.snapshots))
	for _, sn := range s.snapshots {
		out = append(out, sn)
	}
	return out, nil
}

// Save stores one snapshot, keyed by position + dimension.
func (s *MemoryStore) Save(ctx context.Context, sn model.SpawnerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sn.Key] = sn
	return nil
}

// Delete removes one snapshot. Unknown keys are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, key model.SpawnerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, key)
	return nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
