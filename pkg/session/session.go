package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tariffbuilder/tariffbuilder/pkg/draft"
	"github.com/tariffbuilder/tariffbuilder/pkg/grid"
	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/preset"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// Session owns one client's editing state: the tariff draft plus the
// paint engines for its four schedule grids. Engines are created lazily
// and rebuilt whenever the draft's schedule version moves, so a reset
// or import always re-initializes them from the draft's matrices.
type Session struct {
	ID string

	mu      sync.Mutex
	draft   *draft.TariffDraft
	store   gridstore.Store
	engines map[types.GridID]*grid.Engine
}

func newSession(id string, presets *preset.Presets, store gridstore.Store) *Session {
	return &Session{
		ID:      id,
		draft:   draft.New(presets),
		store:   store,
		engines: make(map[types.GridID]*grid.Engine),
	}
}

// WithDraft runs fn while holding the session lock. All draft mutation
// goes through here so concurrent requests from the same client cannot
// interleave mid-edit.
func (s *Session) WithDraft(fn func(d *draft.TariffDraft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.draft)
}

// Engine returns the paint engine for a grid, creating it on first use.
// An engine built under an older schedule version is discarded and
// rebuilt from the draft's matrix for that grid.
func (s *Session) Engine(ctx context.Context, gridID types.GridID) *grid.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineLocked(ctx, gridID)
}

// WithEngine runs fn with the grid's engine while holding the session
// lock, then returns the draft for rendering against the same snapshot.
func (s *Session) WithEngine(ctx context.Context, gridID types.GridID, fn func(e *grid.Engine, d *draft.TariffDraft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engineLocked(ctx, gridID), s.draft)
}

func (s *Session) engineLocked(ctx context.Context, gridID types.GridID) *grid.Engine {
	if e, ok := s.engines[gridID]; ok && e.Version() == s.draft.SchedVersion {
		return e
	}
	e := grid.NewEngine(ctx, s.store, s.ID, gridID, s.draft.SchedVersion, s.draft.MatrixFor(gridID))
	s.engines[gridID] = e
	return e
}

// Manager tracks the live sessions by ID.
type Manager struct {
	presets *preset.Presets
	store   gridstore.Store

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager.
func NewManager(presets *preset.Presets, store gridstore.Store) *Manager {
	return &Manager{
		presets:  presets,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for an ID, or nil if it does not exist.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// GetOrCreate returns the session for an ID, creating a fresh one when
// the ID is unknown or empty. The returned ID is what the client should
// carry in its cookie.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := newSession(id, m.presets, m.store)
	m.sessions[id] = s
	return s
}

// Delete drops a session and its persisted grids.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return m.store.Delete(ctx, id)
}
