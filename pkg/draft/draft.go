package draft

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tariffbuilder/tariffbuilder/pkg/preset"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// Category selects one of the three editable rate-period lists.
type Category string

const (
	CategoryEnergy Category = "energy"
	CategoryDemand Category = "demand"
	CategoryFlat   Category = "flat"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryEnergy, CategoryDemand, CategoryFlat:
		return c, nil
	}
	return "", fmt.Errorf("unknown rate category: %q", s)
}

const (
	// MaxTOUPeriods bounds the energy and demand period lists.
	MaxTOUPeriods = 12
	// MaxFlatPeriods bounds the seasonal flat demand period list.
	MaxFlatPeriods = 6
)

// TariffDraft is the in-progress tariff being edited by one session. It
// is the single aggregate the grid, renderer, and import/export
// components operate on; it is owned by the session and passed by
// reference, never held in ambient global state.
type TariffDraft struct {
	// Basic info
	Utility           string
	Name              string
	Sector            string
	ServiceType       string
	Description       string
	Source            string
	SourceParent      string
	StartDate         time.Time
	EIAID             *int
	VoltageCategory   string
	PhaseWiring       string
	PeakKWCapacityMin *float64
	PeakKWCapacityMax *float64

	// Energy rates
	EnergyPeriods  []types.RatePeriod
	EnergyWeekday  types.ScheduleMatrix
	EnergyWeekend  types.ScheduleMatrix
	EnergyComments string

	// TOU demand (optional)
	DemandEnabled  bool
	DemandPeriods  []types.RatePeriod
	DemandWeekday  types.ScheduleMatrix
	DemandWeekend  types.ScheduleMatrix
	DemandRateUnit string
	DemandWindow   *float64
	DemandReactive *float64
	DemandComments string

	// Flat (seasonal) demand (optional)
	FlatEnabled bool
	FlatPeriods []types.RatePeriod
	// FlatMonths assigns each month (Jan..Dec) to a flat period index.
	FlatMonths []int
	FlatUnit   string

	// Fixed charges
	FixedCharge      *float64
	FixedChargeUnits string
	MinMonthlyCharge *float64
	AnnualMinCharge  *float64

	// SchedVersion gates persisted grid state: stored grids painted
	// under a different version are discarded on load. It increments on
	// import, on freshly enabling TOU demand, and on full reset. It
	// never increments on painting or on period edits.
	SchedVersion int

	presets *preset.Presets
}

// New returns a draft with the initial blank-form state: one zero-rate
// energy period and empty schedules.
func New(presets *preset.Presets) *TariffDraft {
	d := &TariffDraft{presets: presets}
	d.init(1)
	return d
}

// init sets the blank-form state under the given schedule version.
func (d *TariffDraft) init(version int) {
	*d = TariffDraft{
		Sector:           "Commercial",
		ServiceType:      "Bundled",
		StartDate:        time.Now(),
		EnergyPeriods:    []types.RatePeriod{{Label: "Period 0"}},
		EnergyWeekday:    types.NewScheduleMatrix(),
		EnergyWeekend:    types.NewScheduleMatrix(),
		DemandPeriods:    []types.RatePeriod{{Label: "Period 0"}},
		DemandWeekday:    types.NewScheduleMatrix(),
		DemandWeekend:    types.NewScheduleMatrix(),
		DemandRateUnit:   "kW",
		FlatPeriods:      []types.RatePeriod{{Label: "All Months"}},
		FlatMonths:       make([]int, types.ScheduleMonths),
		FlatUnit:         "kW",
		FixedChargeUnits: "$/month",
		SchedVersion:     version,
		presets:          d.presets,
	}
	types.AssignHeatmapColors(d.EnergyPeriods)
	types.AssignHeatmapColors(d.DemandPeriods)
	types.AssignHeatmapColors(d.FlatPeriods)
}

// Reset restores the blank form and invalidates all persisted grids.
func (d *TariffDraft) Reset() {
	d.init(d.SchedVersion + 1)
}

// SetDemandEnabled toggles TOU demand charges. Freshly enabling resets
// both demand schedules to blank and bumps the schedule version so any
// stale persisted demand grids are discarded. Disabling keeps the
// period list and schedules around in case it is re-enabled.
func (d *TariffDraft) SetDemandEnabled(enabled bool) {
	if enabled && !d.DemandEnabled {
		d.DemandWeekday = types.NewScheduleMatrix()
		d.DemandWeekend = types.NewScheduleMatrix()
		d.SchedVersion++
	}
	d.DemandEnabled = enabled
}

// SetFlatEnabled toggles flat (seasonal) demand charges. Flat demand
// has no painted grid, so no version bump is involved.
func (d *TariffDraft) SetFlatEnabled(enabled bool) {
	d.FlatEnabled = enabled
}

// Periods returns the period list for a category.
func (d *TariffDraft) Periods(cat Category) []types.RatePeriod {
	switch cat {
	case CategoryEnergy:
		return d.EnergyPeriods
	case CategoryDemand:
		return d.DemandPeriods
	case CategoryFlat:
		return d.FlatPeriods
	}
	return nil
}

func (d *TariffDraft) periodsRef(cat Category) *[]types.RatePeriod {
	switch cat {
	case CategoryEnergy:
		return &d.EnergyPeriods
	case CategoryDemand:
		return &d.DemandPeriods
	case CategoryFlat:
		return &d.FlatPeriods
	}
	return nil
}

// SetPeriodCount grows or shrinks a category's period list. Growing
// appends default-labeled zero-rate periods; shrinking pops from the
// end. Shrinking the flat list also clamps month assignments to the
// remaining periods. Period-count edits never bump the schedule
// version: painted cells pointing past the new end are clamped at
// render time only.
func (d *TariffDraft) SetPeriodCount(cat Category, n int) error {
	ref := d.periodsRef(cat)
	if ref == nil {
		return fmt.Errorf("unknown rate category: %q", cat)
	}
	max := MaxTOUPeriods
	defaultLabel := "Period"
	if cat == CategoryFlat {
		max = MaxFlatPeriods
		defaultLabel = "Season"
	}
	if n < 1 || n > max {
		return fmt.Errorf("period count must be between 1 and %d", max)
	}

	periods := *ref
	for len(periods) < n {
		periods = append(periods, types.RatePeriod{
			Label: fmt.Sprintf("%s %d", defaultLabel, len(periods)),
		})
	}
	if len(periods) > n {
		periods = periods[:n]
	}
	types.AssignHeatmapColors(periods)
	*ref = periods

	if cat == CategoryFlat {
		for i, m := range d.FlatMonths {
			if m >= n {
				d.FlatMonths[i] = n - 1
			}
		}
	}
	return nil
}

// SetPeriodField applies one text edit to a period field. Numeric text
// is parsed here so a malformed entry is rejected field-locally: the
// error is returned for inline display and the stored value stays at
// its last valid state. Base rates clamp to zero or above; adjustments
// are signed. Colors are recomputed after every successful rate edit.
func (d *TariffDraft) SetPeriodField(cat Category, index int, field, text string) error {
	ref := d.periodsRef(cat)
	if ref == nil {
		return fmt.Errorf("unknown rate category: %q", cat)
	}
	periods := *ref
	if index < 0 || index >= len(periods) {
		return fmt.Errorf("period index out of range: %d", index)
	}

	switch field {
	case "label":
		periods[index].Label = text
	case "rate":
		v, err := parseNumber(text)
		if err != nil {
			return err
		}
		periods[index].Rate = math.Max(0, v)
	case "adj":
		v, err := parseNumber(text)
		if err != nil {
			return err
		}
		periods[index].Adj = v
	default:
		return fmt.Errorf("unknown period field: %q", field)
	}
	types.AssignHeatmapColors(periods)
	return nil
}

// SetFlatMonth assigns a month to one of the flat demand periods.
func (d *TariffDraft) SetFlatMonth(month, periodIndex int) error {
	if month < 0 || month >= types.ScheduleMonths {
		return fmt.Errorf("month out of range: %d", month)
	}
	if periodIndex < 0 || periodIndex >= len(d.FlatPeriods) {
		return fmt.Errorf("flat period index out of range: %d", periodIndex)
	}
	d.FlatMonths[month] = periodIndex
	return nil
}

// MatrixFor returns the draft's fallback matrix for a grid. These are
// the matrices loaded on import; live painting happens in the grid
// engines, which use these as the version-gate fallback.
func (d *TariffDraft) MatrixFor(gridID types.GridID) types.ScheduleMatrix {
	switch gridID {
	case types.GridEnergyWeekday:
		return d.EnergyWeekday
	case types.GridEnergyWeekend:
		return d.EnergyWeekend
	case types.GridDemandWeekday:
		return d.DemandWeekday
	case types.GridDemandWeekend:
		return d.DemandWeekend
	}
	return types.NewScheduleMatrix()
}

// GridPeriods returns the period list that colors a grid.
func (d *TariffDraft) GridPeriods(gridID types.GridID) []types.RatePeriod {
	if gridID.IsDemand() {
		return d.DemandPeriods
	}
	return d.EnergyPeriods
}

func parseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %q", text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number: %q", text)
	}
	return v, nil
}

// ParseOptionalNumber parses a numeric text field where blank means
// "unset". Malformed text returns an error for inline display; callers
// keep the previous value in that case.
func ParseOptionalNumber(text string) (*float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	v, err := parseNumber(text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
