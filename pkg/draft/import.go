package draft

import (
	"time"

	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// ApplyDocument replaces the draft's state with an imported tariff.
// The document has already been normalized and parsed (see
// types.ParseDocument), so application cannot partially fail: the whole
// draft is rebuilt from the document in one step. The schedule version
// bumps so every grid re-initializes from the imported matrices instead
// of stale persisted paint.
func (d *TariffDraft) ApplyDocument(t types.Tariff) {
	version := d.SchedVersion + 1
	d.init(version)

	// Basic info
	d.Utility = t.Utility
	d.Name = t.Name
	if t.Sector != "" {
		d.Sector = t.Sector
	}
	if t.ServiceType != "" {
		d.ServiceType = t.ServiceType
	}
	d.Description = t.Description
	d.Source = t.Source
	d.SourceParent = t.SourceParent
	if t.StartDate > 0 {
		d.StartDate = time.Unix(t.StartDate, 0)
	}
	d.EIAID = t.EIAID
	d.VoltageCategory = t.VoltageCategory
	d.PhaseWiring = t.PhaseWiring
	d.PeakKWCapacityMin = t.PeakKWCapacityMin
	d.PeakKWCapacityMax = t.PeakKWCapacityMax

	// Energy rates. A document without an energy structure still gets an
	// editable period list, seeded from the presets.
	if len(t.EnergyRateStructure) > 0 {
		d.EnergyPeriods = types.PeriodsFromStructure(t.EnergyRateStructure, t.EnergyTOULabels, "Period")
	} else {
		d.EnergyPeriods = d.presets.EnergyPeriods()
	}
	d.EnergyWeekday = types.NormalizeSchedule(t.EnergyWeekdaySchedule)
	d.EnergyWeekend = types.NormalizeSchedule(t.EnergyWeekendSchedule)
	d.EnergyComments = t.EnergyComments

	// TOU demand is enabled exactly when the document carries a demand
	// rate structure.
	if len(t.DemandRateStructure) > 0 {
		d.DemandEnabled = true
		d.DemandPeriods = types.PeriodsFromStructure(t.DemandRateStructure, t.DemandTOULabels, "Period")
		d.DemandWeekday = types.NormalizeSchedule(t.DemandWeekdaySchedule)
		d.DemandWeekend = types.NormalizeSchedule(t.DemandWeekendSchedule)
	}
	if t.DemandRateUnit != "" {
		d.DemandRateUnit = t.DemandRateUnit
	}
	d.DemandWindow = t.DemandWindow
	d.DemandReactive = t.DemandReactivePowerCharge
	d.DemandComments = t.DemandComments

	// Flat demand, likewise gated on its structure. Flat periods carry
	// no label array in the document; they are renamed Season N.
	if len(t.FlatDemandStructure) > 0 {
		d.FlatEnabled = true
		d.FlatPeriods = types.PeriodsFromStructure(t.FlatDemandStructure, nil, "Season")
		if len(t.FlatDemandMonths) == types.ScheduleMonths {
			d.FlatMonths = append([]int(nil), t.FlatDemandMonths...)
		}
	}
	if t.FlatDemandUnit != "" {
		d.FlatUnit = t.FlatDemandUnit
	}

	// Fixed charges
	d.FixedCharge = t.FixedChargeFirstMeter
	if t.FixedChargeUnits != "" {
		d.FixedChargeUnits = t.FixedChargeUnits
	}
	d.MinMonthlyCharge = t.MinMonthlyCharge
	d.AnnualMinCharge = t.AnnualMinCharge
}
