package gridstore

import (
	"context"
	"strings"
	"sync"

	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// MemoryStore keeps grids in a process-local map. Used for tests and as
// a throwaway store for single-run sessions.
type MemoryStore struct {
	mu    sync.Mutex
	grids map[string]StoredGrid
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grids: make(map[string]StoredGrid)}
}

func memKey(clientID string, gridID types.GridID) string {
	return clientID + "/" + string(gridID)
}

// Load implements the version-gated read described on Store.
func (m *MemoryStore) Load(ctx context.Context, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error) {
	return loadGated(ctx, m, clientID, gridID, expectedVersion, fallback)
}

// Save overwrites the stored grid.
func (m *MemoryStore) Save(_ context.Context, clientID string, gridID types.GridID, version int, matrix types.ScheduleMatrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids[memKey(clientID, gridID)] = StoredGrid{Version: version, Matrix: matrix.Clone()}
	return nil
}

// Get reads the stored grid regardless of version.
func (m *MemoryStore) Get(_ context.Context, clientID string, gridID types.GridID) (StoredGrid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.grids[memKey(clientID, gridID)]
	if !ok {
		return StoredGrid{}, false, nil
	}
	return StoredGrid{Version: stored.Version, Matrix: stored.Matrix.Clone()}, true, nil
}

// Delete removes all grids for the client.
func (m *MemoryStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := clientID + "/"
	for k := range m.grids {
		if strings.HasPrefix(k, prefix) {
			delete(m.grids, k)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
