package preset

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// PeriodPreset is one rate period as declared in a preset file.
type PeriodPreset struct {
	Label string  `yaml:"label"`
	Rate  float64 `yaml:"rate"`
	Adj   float64 `yaml:"adj"`
}

// Presets holds the default rate periods per category. They seed a
// category when an imported tariff has no rate structure for it.
type Presets struct {
	Energy []PeriodPreset `yaml:"energy"`
	Demand []PeriodPreset `yaml:"demand"`
	Flat   []PeriodPreset `yaml:"flat"`
}

// Configured loads the presets based on flags, falling back to the
// embedded defaults.
func Configured() *Presets {
	file := lflag.String("preset-file", "", "YAML file overriding the built-in rate period presets")

	p := &Presets{}

	lflag.Do(func() {
		data := defaultsYAML
		if *file != "" {
			var err error
			data, err = os.ReadFile(*file)
			if err != nil {
				panic(fmt.Sprintf("failed to read preset file: %v", err))
			}
		}
		loaded, err := Parse(data)
		if err != nil {
			panic(fmt.Sprintf("failed to parse presets: %v", err))
		}
		*p = *loaded
	})

	return p
}

// Parse decodes and validates a preset document.
func Parse(data []byte) (*Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid preset YAML: %w", err)
	}
	for name, periods := range map[string][]PeriodPreset{
		"energy": p.Energy, "demand": p.Demand, "flat": p.Flat,
	} {
		if len(periods) == 0 {
			return nil, fmt.Errorf("preset category %q must have at least one period", name)
		}
		for i, pp := range periods {
			if pp.Rate < 0 {
				return nil, fmt.Errorf("preset %s[%d]: base rate cannot be negative", name, i)
			}
		}
	}
	return &p, nil
}

// EnergyPeriods returns the energy presets as colored rate periods.
func (p *Presets) EnergyPeriods() []types.RatePeriod {
	return toPeriods(p.Energy)
}

// DemandPeriods returns the demand presets as colored rate periods.
func (p *Presets) DemandPeriods() []types.RatePeriod {
	return toPeriods(p.Demand)
}

// FlatPeriods returns the flat demand presets as colored rate periods.
func (p *Presets) FlatPeriods() []types.RatePeriod {
	return toPeriods(p.Flat)
}

func toPeriods(presets []PeriodPreset) []types.RatePeriod {
	periods := make([]types.RatePeriod, len(presets))
	for i, pp := range presets {
		periods[i] = types.RatePeriod{Label: pp.Label, Rate: pp.Rate, Adj: pp.Adj}
	}
	types.AssignHeatmapColors(periods)
	return periods
}
