package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// fieldNameMap maps the local/display field naming some exports use to
// the canonical lowercase API names. Canonical names pass through
// untouched, so documents in either naming import identically.
var fieldNameMap = map[string]string{
	"utilityName":           "utility",
	"rateName":              "name",
	"eiaId":                 "eiaid",
	"serviceType":           "servicetype",
	"voltageCategory":       "voltagecategory",
	"phaseWiring":           "phasewiring",
	"demandMin":             "peakkwcapacitymin",
	"demandMax":             "peakkwcapacitymax",
	"energyMin":             "peakkwhusagemin",
	"energyMax":             "peakkwhusagemax",
	"demandUnits":           "demandunits",
	"demandRateUnit":        "demandrateunit",
	"flatDemandUnit":        "flatdemandunit",
	"flatDemandMonths":      "flatdemandmonths",
	"fixedChargeFirstMeter": "fixedchargefirstmeter",
	"fixedChargeUnits":      "fixedchargeunits",
	"minMonthlyCharge":      "minmonthlycharge",
	"demandLabels":          "demandtoulabels",
	"energyTOULabels":       "energytoulabels",
	"energyComments":        "energycomments",
	"demandComments":        "demandcomments",
	"energyRateStrux":       "energyratestructure",
	"energyWeekdaySched":    "energyweekdayschedule",
	"energyWeekendSched":    "energyweekendschedule",
	"demandRateStrux":       "demandratestructure",
	"demandWeekdaySched":    "demandweekdayschedule",
	"demandWeekendSched":    "demandweekendschedule",
	"flatDemandStrux":       "flatdemandstructure",
}

// structureFields are the rate-structure fields that may arrive nested
// as per-period objects holding a "*Tiers" list instead of a flat
// list-of-tier-lists.
var structureFields = []string{
	"energyratestructure",
	"demandratestructure",
	"flatdemandstructure",
}

// ParseDocument decodes raw JSON into a normalized Tariff. The input may
// be a bare tariff record or wrapped as {"items": [record, ...]}, in
// which case the first item is used. Field names in either the local or
// the canonical naming are accepted. Parsing is all-or-nothing: on any
// error the returned Tariff is zero and nothing should be applied.
func ParseDocument(data []byte) (Tariff, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Tariff{}, fmt.Errorf("failed to parse tariff JSON: %w", err)
	}
	return NormalizeDocument(raw)
}

// NormalizeDocument converts a decoded tariff record into the typed
// canonical representation.
func NormalizeDocument(raw map[string]any) (Tariff, error) {
	record := unwrapItems(raw)

	out := make(map[string]any, len(record))
	for k, v := range record {
		if canonical, ok := fieldNameMap[k]; ok {
			k = canonical
		}
		out[k] = v
	}
	normalizeStructures(out)

	// Round-trip through JSON to move from the duck-typed map into the
	// typed document, validating shapes at the boundary.
	buf, err := json.Marshal(out)
	if err != nil {
		return Tariff{}, fmt.Errorf("failed to re-encode normalized tariff: %w", err)
	}
	var t Tariff
	if err := json.Unmarshal(buf, &t); err != nil {
		return Tariff{}, fmt.Errorf("tariff document has the wrong shape: %w", err)
	}
	return t, nil
}

func unwrapItems(raw map[string]any) map[string]any {
	items, ok := raw["items"].([]any)
	if !ok || len(items) == 0 {
		return raw
	}
	if first, ok := items[0].(map[string]any); ok {
		return first
	}
	return raw
}

// normalizeStructures flattens nested per-period objects like
// {"energyRateTiers": [...]} into the flat list-of-tier-lists shape the
// canonical format uses.
func normalizeStructures(out map[string]any) {
	for _, key := range structureFields {
		raw, ok := out[key].([]any)
		if !ok {
			continue
		}
		converted := make([]any, 0, len(raw))
		for _, item := range raw {
			switch v := item.(type) {
			case map[string]any:
				if tiers, ok := tierList(v); ok {
					converted = append(converted, tiers)
				} else {
					// A bare tier object stands in for a one-tier list.
					converted = append(converted, []any{v})
				}
			case []any:
				converted = append(converted, v)
			default:
				converted = append(converted, []any{})
			}
		}
		out[key] = converted
	}
}

func tierList(period map[string]any) (any, bool) {
	for k, v := range period {
		if strings.Contains(strings.ToLower(k), "tier") {
			return v, true
		}
	}
	return nil, false
}
