package draft

import (
	"context"
	"log/slog"
	"time"

	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/log"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// BuildDocument assembles the exportable tariff from the draft. The
// schedule matrices are read from the live grid store at export time so
// the document reflects the most recent paint state, including edits
// made after the last full recompute; the draft's own matrices only
// serve as the version-gate fallback.
func (d *TariffDraft) BuildDocument(ctx context.Context, store gridstore.Store, clientID string) types.Tariff {
	t := types.Tariff{
		Sector:  d.Sector,
		Country: "USA",
	}

	// Basic info: blank optional strings are omitted entirely.
	t.Utility = d.Utility
	t.Name = d.Name
	t.ServiceType = d.ServiceType
	t.Description = d.Description
	t.Source = d.Source
	t.SourceParent = d.SourceParent
	if !d.StartDate.IsZero() {
		day := d.StartDate
		t.StartDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).Unix()
	}
	t.EIAID = d.EIAID
	t.VoltageCategory = d.VoltageCategory
	t.PhaseWiring = d.PhaseWiring
	t.PeakKWCapacityMin = d.PeakKWCapacityMin
	t.PeakKWCapacityMax = d.PeakKWCapacityMax

	// Energy rates: one-tier lists, kWh units on energy only.
	t.EnergyRateStructure = tieredStructure(d.EnergyPeriods, "kWh")
	t.EnergyTOULabels = types.PeriodLabels(d.EnergyPeriods)
	t.EnergyWeekdaySchedule = d.liveMatrix(ctx, store, clientID, types.GridEnergyWeekday)
	t.EnergyWeekendSchedule = d.liveMatrix(ctx, store, clientID, types.GridEnergyWeekend)
	t.EnergyComments = d.EnergyComments

	if d.DemandEnabled && len(d.DemandPeriods) > 0 {
		t.DemandRateUnit = d.DemandRateUnit
		t.DemandUnits = d.DemandRateUnit
		t.DemandRateStructure = tieredStructure(d.DemandPeriods, "")
		t.DemandTOULabels = types.PeriodLabels(d.DemandPeriods)
		t.DemandWeekdaySchedule = d.liveMatrix(ctx, store, clientID, types.GridDemandWeekday)
		t.DemandWeekendSchedule = d.liveMatrix(ctx, store, clientID, types.GridDemandWeekend)
		t.DemandWindow = d.DemandWindow
		t.DemandReactivePowerCharge = d.DemandReactive
		t.DemandComments = d.DemandComments
	}

	if d.FlatEnabled && len(d.FlatPeriods) > 0 {
		t.FlatDemandUnit = d.FlatUnit
		t.FlatDemandStructure = tieredStructure(d.FlatPeriods, "")
		t.FlatDemandMonths = append([]int(nil), d.FlatMonths...)
	}

	if d.FixedCharge != nil {
		t.FixedChargeFirstMeter = d.FixedCharge
		t.FixedChargeUnits = d.FixedChargeUnits
	}
	t.MinMonthlyCharge = d.MinMonthlyCharge
	t.AnnualMinCharge = d.AnnualMinCharge

	return t
}

// liveMatrix reads a grid through the version gate so the export sees
// exactly what a freshly rendered grid would: current-version paint if
// any, the draft's matrix otherwise. A store failure falls back to the
// draft's matrix.
func (d *TariffDraft) liveMatrix(ctx context.Context, store gridstore.Store, clientID string, gridID types.GridID) types.ScheduleMatrix {
	fallback := d.MatrixFor(gridID)
	m, err := store.Load(ctx, clientID, gridID, d.SchedVersion, fallback)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read grid for export",
			slog.String("gridID", string(gridID)), slog.Any("error", err))
	}
	if m == nil {
		return fallback.Clone()
	}
	return m
}

func tieredStructure(periods []types.RatePeriod, unit string) [][]types.RateTier {
	structure := make([][]types.RateTier, len(periods))
	for i, p := range periods {
		structure[i] = []types.RateTier{{Unit: unit, Rate: p.Rate, Adj: p.Adj}}
	}
	return structure
}
