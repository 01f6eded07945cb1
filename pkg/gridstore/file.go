package gridstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// FileStore persists grids as one JSON file per client under a
// directory. This is the default provider: the grid state is a
// lightweight per-client cache (originally browser localStorage), so a
// local file is durable enough and needs no external service.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("grid store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create grid store directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(clientID string) (string, error) {
	// Client IDs are uuids, but never trust them as path components.
	if clientID == "" || strings.ContainsAny(clientID, `/\.`) {
		return "", fmt.Errorf("invalid client id: %q", clientID)
	}
	return filepath.Join(f.dir, clientID+".json"), nil
}

func (f *FileStore) read(clientID string) (map[types.GridID]StoredGrid, error) {
	path, err := f.path(clientID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[types.GridID]StoredGrid{}, nil
		}
		return nil, fmt.Errorf("failed to read grid file: %w", err)
	}
	grids := map[types.GridID]StoredGrid{}
	if err := json.Unmarshal(data, &grids); err != nil {
		// A corrupt file is treated as absent; the next save rewrites it.
		return map[types.GridID]StoredGrid{}, nil
	}
	return grids, nil
}

func (f *FileStore) write(clientID string, grids map[types.GridID]StoredGrid) error {
	path, err := f.path(clientID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(grids)
	if err != nil {
		return fmt.Errorf("failed to encode grid file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write grid file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace grid file: %w", err)
	}
	return nil
}

// Load implements the version-gated read described on Store.
func (f *FileStore) Load(ctx context.Context, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error) {
	return loadGated(ctx, f, clientID, gridID, expectedVersion, fallback)
}

// Save overwrites the stored grid.
func (f *FileStore) Save(_ context.Context, clientID string, gridID types.GridID, version int, matrix types.ScheduleMatrix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	grids, err := f.read(clientID)
	if err != nil {
		return err
	}
	grids[gridID] = StoredGrid{Version: version, Matrix: matrix.Clone()}
	return f.write(clientID, grids)
}

// Get reads the stored grid regardless of version.
func (f *FileStore) Get(_ context.Context, clientID string, gridID types.GridID) (StoredGrid, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grids, err := f.read(clientID)
	if err != nil {
		return StoredGrid{}, false, err
	}
	stored, ok := grids[gridID]
	if !ok {
		return StoredGrid{}, false, nil
	}
	return stored, true, nil
}

// Delete removes the client's grid file.
func (f *FileStore) Delete(_ context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, err := f.path(clientID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete grid file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error { return nil }
