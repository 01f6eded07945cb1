package types

import "fmt"

// MonthNames are the schedule matrix row labels, January first.
var MonthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Option lists for the tariff form selects.
var (
	SectorOptions      = []string{"Commercial", "Residential", "Industrial", "Lighting"}
	ServiceTypeOptions = []string{"Bundled", "Delivery", "Energy"}
	VoltageCategories  = []string{"", "Secondary", "Primary", "Transmission"}
	PhaseOptions       = []string{"", "Single Phase", "3-Phase", "Single and 3-Phase"}
	DemandUnitOptions  = []string{"kW", "hp", "kVA", "kW daily", "hp daily", "kVA daily"}
)

// RateTier is one tier of a rate structure. The builder only ever edits
// the first tier of each period; additional tiers are accepted on import
// but not represented.
type RateTier struct {
	Unit string   `json:"unit,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Rate float64  `json:"rate"`
	Adj  float64  `json:"adj"`
}

// Tariff is a URDB-compatible tariff document using the canonical
// lowercase API field names. Optional numeric fields are pointers so
// that unset values are omitted from the exported JSON.
type Tariff struct {
	Utility      string `json:"utility,omitempty"`
	Name         string `json:"name,omitempty"`
	Sector       string `json:"sector,omitempty"`
	ServiceType  string `json:"servicetype,omitempty"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source,omitempty"`
	SourceParent string `json:"sourceparent,omitempty"`
	// StartDate is a unix timestamp (seconds).
	StartDate int64 `json:"startdate,omitempty"`
	EIAID     *int  `json:"eiaid,omitempty"`

	VoltageCategory   string   `json:"voltagecategory,omitempty"`
	PhaseWiring       string   `json:"phasewiring,omitempty"`
	PeakKWCapacityMin *float64 `json:"peakkwcapacitymin,omitempty"`
	PeakKWCapacityMax *float64 `json:"peakkwcapacitymax,omitempty"`
	PeakKWhUsageMin   *float64 `json:"peakkwhusagemin,omitempty"`
	PeakKWhUsageMax   *float64 `json:"peakkwhusagemax,omitempty"`

	EnergyRateStructure   [][]RateTier   `json:"energyratestructure,omitempty"`
	EnergyTOULabels       []string       `json:"energytoulabels,omitempty"`
	EnergyWeekdaySchedule ScheduleMatrix `json:"energyweekdayschedule,omitempty"`
	EnergyWeekendSchedule ScheduleMatrix `json:"energyweekendschedule,omitempty"`
	EnergyComments        string         `json:"energycomments,omitempty"`

	DemandRateUnit            string         `json:"demandrateunit,omitempty"`
	DemandUnits               string         `json:"demandunits,omitempty"`
	DemandRateStructure       [][]RateTier   `json:"demandratestructure,omitempty"`
	DemandTOULabels           []string       `json:"demandtoulabels,omitempty"`
	DemandWeekdaySchedule     ScheduleMatrix `json:"demandweekdayschedule,omitempty"`
	DemandWeekendSchedule     ScheduleMatrix `json:"demandweekendschedule,omitempty"`
	DemandWindow              *float64       `json:"demandwindow,omitempty"`
	DemandReactivePowerCharge *float64       `json:"demandreactivepowercharge,omitempty"`
	DemandComments            string         `json:"demandcomments,omitempty"`

	FlatDemandUnit      string       `json:"flatdemandunit,omitempty"`
	FlatDemandStructure [][]RateTier `json:"flatdemandstructure,omitempty"`
	FlatDemandMonths    []int        `json:"flatdemandmonths,omitempty"`

	FixedChargeFirstMeter *float64 `json:"fixedchargefirstmeter,omitempty"`
	FixedChargeUnits      string   `json:"fixedchargeunits,omitempty"`
	MinMonthlyCharge      *float64 `json:"minmonthlycharge,omitempty"`
	AnnualMinCharge       *float64 `json:"annualmincharge,omitempty"`

	Country string `json:"country,omitempty"`
}

// Document wraps a tariff the way the URDB API delivers it.
type Document struct {
	Items []Tariff `json:"items"`
}

// PeriodsFromStructure extracts the editable period list from a rate
// structure plus its label array. Only the first tier of each period is
// consumed. Missing labels fall back to "<defaultLabel> <index>".
// Colors are assigned before returning.
func PeriodsFromStructure(structure [][]RateTier, labels []string, defaultLabel string) []RatePeriod {
	if len(structure) == 0 {
		return nil
	}
	periods := make([]RatePeriod, 0, len(structure))
	for idx, tiers := range structure {
		p := RatePeriod{Label: labelAt(labels, idx, defaultLabel)}
		if len(tiers) > 0 {
			p.Rate = tiers[0].Rate
			p.Adj = tiers[0].Adj
		}
		periods = append(periods, p)
	}
	AssignHeatmapColors(periods)
	return periods
}

func labelAt(labels []string, idx int, defaultLabel string) string {
	if idx < len(labels) {
		return labels[idx]
	}
	return fmt.Sprintf("%s %d", defaultLabel, idx)
}
