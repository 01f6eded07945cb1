package types

import "fmt"

const (
	// ScheduleMonths is the number of rows in a schedule matrix (Jan-Dec).
	ScheduleMonths = 12
	// ScheduleHours is the number of columns in a schedule matrix, one per
	// hour-of-day with "hour starting at" semantics.
	ScheduleHours = 24
)

// GridID identifies one independently painted schedule grid.
type GridID string

const (
	GridEnergyWeekday GridID = "energy_weekday"
	GridEnergyWeekend GridID = "energy_weekend"
	GridDemandWeekday GridID = "demand_weekday"
	GridDemandWeekend GridID = "demand_weekend"
)

// ParseGridID validates a grid identifier.
func ParseGridID(s string) (GridID, error) {
	switch g := GridID(s); g {
	case GridEnergyWeekday, GridEnergyWeekend, GridDemandWeekday, GridDemandWeekend:
		return g, nil
	}
	return "", fmt.Errorf("unknown grid id: %q", s)
}

// IsDemand reports whether the grid belongs to the TOU demand category.
func (g GridID) IsDemand() bool {
	return g == GridDemandWeekday || g == GridDemandWeekend
}

// Sibling returns the opposite weekday/weekend grid in the same
// category. Used by the copy-from convenience.
func (g GridID) Sibling() GridID {
	switch g {
	case GridEnergyWeekday:
		return GridEnergyWeekend
	case GridEnergyWeekend:
		return GridEnergyWeekday
	case GridDemandWeekday:
		return GridDemandWeekend
	case GridDemandWeekend:
		return GridDemandWeekday
	}
	return g
}

// ScheduleMatrix maps (month, hour) to a rate-period index. Cell values
// are stored exactly as painted; out-of-range indices are only clamped
// at read time, never rewritten in storage.
type ScheduleMatrix [][]int

// NewScheduleMatrix returns a 12x24 matrix with every cell set to
// period 0.
func NewScheduleMatrix() ScheduleMatrix {
	m := make(ScheduleMatrix, ScheduleMonths)
	for i := range m {
		m[i] = make([]int, ScheduleHours)
	}
	return m
}

// NormalizeSchedule pads or truncates a possibly ragged matrix (for
// example one read from an imported document) to exactly 12x24,
// filling missing cells with period 0.
func NormalizeSchedule(raw [][]int) ScheduleMatrix {
	m := NewScheduleMatrix()
	for mi := 0; mi < ScheduleMonths && mi < len(raw); mi++ {
		for hi := 0; hi < ScheduleHours && hi < len(raw[mi]); hi++ {
			m[mi][hi] = raw[mi][hi]
		}
	}
	return m
}

// Clone returns a deep copy.
func (m ScheduleMatrix) Clone() ScheduleMatrix {
	out := make(ScheduleMatrix, len(m))
	for i, row := range m {
		out[i] = make([]int, len(row))
		copy(out[i], row)
	}
	return out
}

// At returns the period index at (month, hour), or 0 when the address
// is outside the matrix.
func (m ScheduleMatrix) At(month, hour int) int {
	if month < 0 || month >= len(m) {
		return 0
	}
	row := m[month]
	if hour < 0 || hour >= len(row) {
		return 0
	}
	return row[hour]
}

// Clamped returns a copy with every cell clamped to
// [0, periodCount-1]. This is a display-time safety net: when the
// period list shrinks, cells still pointing at a removed period render
// as the last remaining period until repainted. The stored matrix is
// left untouched so re-adding a period restores the painted intent.
func (m ScheduleMatrix) Clamped(periodCount int) ScheduleMatrix {
	if periodCount < 1 {
		periodCount = 1
	}
	out := m.Clone()
	for _, row := range out {
		for i, v := range row {
			if v < 0 {
				row[i] = 0
			} else if v >= periodCount {
				row[i] = periodCount - 1
			}
		}
	}
	return out
}

// Equal reports whether two matrices hold identical cell values.
func (m ScheduleMatrix) Equal(other ScheduleMatrix) bool {
	if len(m) != len(other) {
		return false
	}
	for i, row := range m {
		if len(row) != len(other[i]) {
			return false
		}
		for j, v := range row {
			if v != other[i][j] {
				return false
			}
		}
	}
	return true
}
