package gridstore

import (
	"context"

	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// StoredGrid is the persisted value for one schedule grid: the painted
// matrix plus the schedule version it was painted under.
type StoredGrid struct {
	Version int                  `json:"version"`
	Matrix  types.ScheduleMatrix `json:"matrix"`
}

// Store persists painted schedule grids per client session. The store is
// best effort: painting must keep working when a write fails, so callers
// log and swallow Save errors rather than surfacing them.
type Store interface {
	// Load returns the stored matrix for the grid if its stored version
	// equals expectedVersion. On a mismatch, or when nothing is stored,
	// the fallback is written under expectedVersion and returned.
	Load(ctx context.Context, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error)

	// Save unconditionally overwrites the stored grid.
	Save(ctx context.Context, clientID string, gridID types.GridID, version int, matrix types.ScheduleMatrix) error

	// Get reads the stored grid regardless of its version. Used for the
	// cross-grid copy convenience and nowhere else; ok is false when
	// nothing is stored.
	Get(ctx context.Context, clientID string, gridID types.GridID) (StoredGrid, bool, error)

	// Delete removes all grids stored for a client.
	Delete(ctx context.Context, clientID string) error

	// Lifecycle
	Close() error
}

// loadGated implements the version gate shared by every provider in
// terms of its Get and Save.
func loadGated(ctx context.Context, s Store, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error) {
	stored, ok, err := s.Get(ctx, clientID, gridID)
	if err == nil && ok && stored.Version == expectedVersion {
		return stored.Matrix.Clone(), nil
	}
	fb := fallback.Clone()
	if saveErr := s.Save(ctx, clientID, gridID, expectedVersion, fb); saveErr != nil && err == nil {
		err = saveErr
	}
	return fb, err
}
