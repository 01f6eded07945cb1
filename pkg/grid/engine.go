package grid

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/log"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// Cell addresses one grid cell.
type Cell struct {
	Month int `json:"month"`
	Hour  int `json:"hour"`
}

// Engine is the stateful paint controller bound to one rendered grid.
// Every mutating operation writes through to the store immediately; a
// failed write is logged and swallowed so painting keeps working in
// memory for the rest of the session (it just won't survive a reload).
type Engine struct {
	store    gridstore.Store
	clientID string
	gridID   types.GridID
	version  int

	matrix types.ScheduleMatrix

	// active is the paint period applied by subsequent operations.
	active int
	// lastMonth/lastHour track the most recently painted cell; the
	// row/column fills operate on them. They start at (0, 0), so a fill
	// before any paint targets January / midnight.
	lastMonth int
	lastHour  int
}

// NewEngine loads the grid's persisted state through the version gate
// and returns an engine bound to it. A store read failure falls back to
// the supplied matrix.
func NewEngine(ctx context.Context, store gridstore.Store, clientID string, gridID types.GridID, version int, fallback types.ScheduleMatrix) *Engine {
	matrix, err := store.Load(ctx, clientID, gridID, version, fallback)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load grid state",
			slog.String("gridID", string(gridID)), slog.Any("error", err))
	}
	if matrix == nil {
		matrix = fallback.Clone()
	}
	return &Engine{
		store:    store,
		clientID: clientID,
		gridID:   gridID,
		version:  version,
		matrix:   matrix,
	}
}

// GridID returns the grid this engine is bound to.
func (e *Engine) GridID() types.GridID { return e.gridID }

// Version returns the schedule version the engine was created under.
func (e *Engine) Version() int { return e.version }

// ActivePeriod returns the current paint period index.
func (e *Engine) ActivePeriod() int { return e.active }

// Matrix returns a copy of the current in-memory matrix.
func (e *Engine) Matrix() types.ScheduleMatrix { return e.matrix.Clone() }

// SelectPeriod sets the active paint period for subsequent paints.
func (e *Engine) SelectPeriod(index int) error {
	if index < 0 {
		return fmt.Errorf("period index cannot be negative: %d", index)
	}
	e.active = index
	return nil
}

// PaintCell sets one cell to the active period and records it as the
// last painted coordinate.
func (e *Engine) PaintCell(ctx context.Context, month, hour int) error {
	if month < 0 || month >= types.ScheduleMonths {
		return fmt.Errorf("month out of range: %d", month)
	}
	if hour < 0 || hour >= types.ScheduleHours {
		return fmt.Errorf("hour out of range: %d", hour)
	}
	e.matrix[month][hour] = e.active
	e.lastMonth = month
	e.lastHour = hour
	e.persist(ctx)
	return nil
}

// PaintDrag paints every cell of a drag gesture in traversal order.
// The whole sequence persists as one write.
func (e *Engine) PaintDrag(ctx context.Context, cells []Cell) error {
	for _, c := range cells {
		if c.Month < 0 || c.Month >= types.ScheduleMonths || c.Hour < 0 || c.Hour >= types.ScheduleHours {
			return fmt.Errorf("cell out of range: month=%d hour=%d", c.Month, c.Hour)
		}
	}
	for _, c := range cells {
		e.matrix[c.Month][c.Hour] = e.active
		e.lastMonth = c.Month
		e.lastHour = c.Hour
	}
	if len(cells) > 0 {
		e.persist(ctx)
	}
	return nil
}

// FillAll sets all 288 cells to the active period.
func (e *Engine) FillAll(ctx context.Context) {
	for mi := range e.matrix {
		for hi := range e.matrix[mi] {
			e.matrix[mi][hi] = e.active
		}
	}
	e.persist(ctx)
}

// FillMonthRow sets all 24 cells of the most recently painted month to
// the active period.
func (e *Engine) FillMonthRow(ctx context.Context) {
	for hi := range e.matrix[e.lastMonth] {
		e.matrix[e.lastMonth][hi] = e.active
	}
	e.persist(ctx)
}

// FillHourColumn sets all 12 cells of the most recently painted hour to
// the active period.
func (e *Engine) FillHourColumn(ctx context.Context) {
	for mi := range e.matrix {
		e.matrix[mi][e.lastHour] = e.active
	}
	e.persist(ctx)
}

// ClearAll resets every cell to period 0.
func (e *Engine) ClearAll(ctx context.Context) {
	for mi := range e.matrix {
		for hi := range e.matrix[mi] {
			e.matrix[mi][hi] = 0
		}
	}
	e.persist(ctx)
}

// CopyFromSibling overwrites this grid with the source grid's currently
// stored matrix. The read is deliberately version blind: it is a
// point-in-time clone convenience (weekday pattern into weekend), not
// an ongoing link. An absent or unreadable source is a no-op.
func (e *Engine) CopyFromSibling(ctx context.Context, source types.GridID) {
	stored, ok, err := e.store.Get(ctx, e.clientID, source)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read copy source grid",
			slog.String("source", string(source)), slog.Any("error", err))
		return
	}
	if !ok {
		return
	}
	e.matrix = types.NormalizeSchedule(stored.Matrix)
	e.persist(ctx)
}

// persist writes through to the store. Failures are non-fatal: the
// in-memory paint stands, it just won't survive a reload.
func (e *Engine) persist(ctx context.Context) {
	if err := e.store.Save(ctx, e.clientID, e.gridID, e.version, e.matrix); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to persist grid state",
			slog.String("gridID", string(e.gridID)), slog.Any("error", err))
	}
}
