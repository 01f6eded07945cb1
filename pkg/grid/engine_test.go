package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// failingStore wraps a working store and fails every Save, to verify
// that painting keeps working when persistence does not.
type failingStore struct {
	gridstore.Store
}

func (f *failingStore) Save(context.Context, string, types.GridID, int, types.ScheduleMatrix) error {
	return errors.New("store unavailable")
}

func newTestEngine(t *testing.T) (*Engine, gridstore.Store) {
	t.Helper()
	store := gridstore.NewMemoryStore()
	e := NewEngine(context.Background(), store, "client", types.GridEnergyWeekday, 1, types.NewScheduleMatrix())
	return e, store
}

func storedMatrix(t *testing.T, store gridstore.Store, gridID types.GridID) types.ScheduleMatrix {
	t.Helper()
	stored, ok, err := store.Get(context.Background(), "client", gridID)
	require.NoError(t, err)
	require.True(t, ok)
	return stored.Matrix
}

func TestEnginePaint(t *testing.T) {
	ctx := context.Background()

	t.Run("paint cell persists immediately", func(t *testing.T) {
		e, store := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(2))
		require.NoError(t, e.PaintCell(ctx, 3, 5))

		assert.Equal(t, 2, e.Matrix().At(3, 5))
		assert.Equal(t, 2, storedMatrix(t, store, types.GridEnergyWeekday).At(3, 5))
	})

	t.Run("paint bounds checked", func(t *testing.T) {
		e, _ := newTestEngine(t)
		assert.Error(t, e.PaintCell(ctx, 12, 0))
		assert.Error(t, e.PaintCell(ctx, 0, 24))
		assert.Error(t, e.PaintCell(ctx, -1, 0))
	})

	t.Run("drag paints every traversed cell", func(t *testing.T) {
		e, store := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(1))
		cells := []Cell{{Month: 0, Hour: 8}, {Month: 0, Hour: 9}, {Month: 1, Hour: 9}}
		require.NoError(t, e.PaintDrag(ctx, cells))

		m := e.Matrix()
		for _, c := range cells {
			assert.Equal(t, 1, m.At(c.Month, c.Hour))
		}
		assert.True(t, m.Equal(storedMatrix(t, store, types.GridEnergyWeekday)))

		// Row fill now targets the last traversed cell's month.
		require.NoError(t, e.SelectPeriod(3))
		e.FillMonthRow(ctx)
		assert.Equal(t, 3, e.Matrix().At(1, 0))
		assert.Equal(t, 1, e.Matrix().At(0, 8), "other months untouched")
	})

	t.Run("drag rejects out-of-range cells without painting", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(1))
		err := e.PaintDrag(ctx, []Cell{{Month: 0, Hour: 0}, {Month: 0, Hour: 99}})
		require.Error(t, err)
		assert.Equal(t, 0, e.Matrix().At(0, 0))
	})

	t.Run("select rejects negative index", func(t *testing.T) {
		e, _ := newTestEngine(t)
		assert.Error(t, e.SelectPeriod(-1))
		assert.Equal(t, 0, e.ActivePeriod(), "active period starts at 0 and is unchanged")
	})
}

func TestEngineFills(t *testing.T) {
	ctx := context.Background()

	t.Run("fill all is idempotent", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(2))
		e.FillAll(ctx)
		first := e.Matrix()
		e.FillAll(ctx)
		assert.True(t, first.Equal(e.Matrix()))
		for mi := 0; mi < types.ScheduleMonths; mi++ {
			for hi := 0; hi < types.ScheduleHours; hi++ {
				require.Equal(t, 2, first.At(mi, hi))
			}
		}
	})

	t.Run("fill month row scope", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(2))
		require.NoError(t, e.PaintCell(ctx, 3, 5))
		e.FillMonthRow(ctx)

		m := e.Matrix()
		for hi := 0; hi < types.ScheduleHours; hi++ {
			require.Equal(t, 2, m.At(3, hi), "all 24 cells of month 3 painted")
		}
		for mi := 0; mi < types.ScheduleMonths; mi++ {
			if mi == 3 {
				continue
			}
			for hi := 0; hi < types.ScheduleHours; hi++ {
				require.Zero(t, m.At(mi, hi), "other months stay at 0")
			}
		}
	})

	t.Run("fill hour column scope", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(1))
		require.NoError(t, e.PaintCell(ctx, 6, 17))
		e.FillHourColumn(ctx)

		m := e.Matrix()
		for mi := 0; mi < types.ScheduleMonths; mi++ {
			require.Equal(t, 1, m.At(mi, 17))
		}
		assert.Zero(t, m.At(0, 16))
	})

	t.Run("fills before any paint target month 0 hour 0", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(1))
		e.FillMonthRow(ctx)
		m := e.Matrix()
		for hi := 0; hi < types.ScheduleHours; hi++ {
			require.Equal(t, 1, m.At(0, hi))
		}
		assert.Zero(t, m.At(1, 0))
	})

	t.Run("clear resets to period 0", func(t *testing.T) {
		e, store := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(2))
		e.FillAll(ctx)
		e.ClearAll(ctx)
		assert.True(t, types.NewScheduleMatrix().Equal(e.Matrix()))
		assert.True(t, types.NewScheduleMatrix().Equal(storedMatrix(t, store, types.GridEnergyWeekday)))
	})
}

func TestEngineCopyFromSibling(t *testing.T) {
	ctx := context.Background()

	t.Run("copies stored source matrix", func(t *testing.T) {
		store := gridstore.NewMemoryStore()
		source := types.NewScheduleMatrix()
		source[4][12] = 2
		// The source was saved under a different version; copy is
		// deliberately version blind.
		require.NoError(t, store.Save(ctx, "client", types.GridEnergyWeekday, 7, source))

		e := NewEngine(ctx, store, "client", types.GridEnergyWeekend, 1, types.NewScheduleMatrix())
		e.CopyFromSibling(ctx, types.GridEnergyWeekday)
		assert.Equal(t, 2, e.Matrix().At(4, 12))
		assert.Equal(t, 2, storedMatrix(t, store, types.GridEnergyWeekend).At(4, 12))
	})

	t.Run("absent source is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SelectPeriod(1))
		require.NoError(t, e.PaintCell(ctx, 2, 2))
		e.CopyFromSibling(ctx, types.GridEnergyWeekend)
		assert.Equal(t, 1, e.Matrix().At(2, 2), "existing paint untouched")
	})
}

func TestEngineSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: gridstore.NewMemoryStore()}
	e := NewEngine(ctx, store, "client", types.GridEnergyWeekday, 1, types.NewScheduleMatrix())

	require.NoError(t, e.SelectPeriod(2))
	require.NoError(t, e.PaintCell(ctx, 1, 1), "save failure must not surface")
	e.FillAll(ctx)
	assert.Equal(t, 2, e.Matrix().At(11, 23), "in-memory paint stands")
}

func TestEngineVersionGate(t *testing.T) {
	ctx := context.Background()
	store := gridstore.NewMemoryStore()

	e1 := NewEngine(ctx, store, "client", types.GridEnergyWeekday, 1, types.NewScheduleMatrix())
	require.NoError(t, e1.SelectPeriod(2))
	require.NoError(t, e1.PaintCell(ctx, 5, 5))

	// Same version: painted state is restored.
	e2 := NewEngine(ctx, store, "client", types.GridEnergyWeekday, 1, types.NewScheduleMatrix())
	assert.Equal(t, 2, e2.Matrix().At(5, 5))

	// New version (import/reset happened): stale paint is discarded in
	// favor of the supplied fallback.
	fallback := types.NewScheduleMatrix()
	fallback[0][0] = 1
	e3 := NewEngine(ctx, store, "client", types.GridEnergyWeekday, 2, fallback)
	assert.Equal(t, 0, e3.Matrix().At(5, 5))
	assert.Equal(t, 1, e3.Matrix().At(0, 0))
}
