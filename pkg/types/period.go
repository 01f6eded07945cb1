package types

// RatePeriod is one time-of-use rate tier. Periods are identified by
// their position in an ordered list: grid cells reference periods by
// index, so removing or reordering periods changes the meaning of every
// painted cell above the removed index.
type RatePeriod struct {
	Label string  `json:"label"`
	Rate  float64 `json:"rate"`
	Adj   float64 `json:"adj"`

	// Color is derived from the period's rank among all periods in the
	// list and is recomputed after every rate edit. It is never imported
	// from or emitted into a tariff document.
	Color string `json:"color,omitempty"`
}

// Total returns the effective rate: base rate plus adjustment. The
// adjustment may be negative.
func (p RatePeriod) Total() float64 {
	return p.Rate + p.Adj
}

// PeriodLabels returns the ordered label list for a period slice.
func PeriodLabels(periods []RatePeriod) []string {
	labels := make([]string, len(periods))
	for i, p := range periods {
		labels[i] = p.Label
	}
	return labels
}
