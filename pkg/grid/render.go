package grid

import (
	"fmt"
	"html"
	"strings"

	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// RenderOptions configures one rendered grid.
type RenderOptions struct {
	GridID   types.GridID
	Matrix   types.ScheduleMatrix
	Periods  []types.RatePeriod
	Title    string
	RateUnit string // e.g. "$/kWh"
	// ShowRates overlays the total rate on each cell. Cosmetic only.
	ShowRates    bool
	ActivePeriod int
	// CopyFrom, when set, adds a "copy from" button for that grid.
	CopyFrom types.GridID
}

// HourLabel formats an hour-of-day column header on a 12-hour clock
// with "starting at" semantics: hour 0 is "12AM" (the 12:00-12:59AM
// window), hour 13 is "1PM".
func HourLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// RenderGrid produces the HTML fragment for one schedule painting grid:
// the period legend, the 12x24 cell matrix with heatmap colors, and the
// bulk-fill controls. It is read-only with respect to the model; the
// emitted data attributes are wired to the interaction API by the
// editor page script. Cells referencing a removed period render clamped
// to the last period (the stored index is preserved).
func RenderGrid(opts RenderOptions) string {
	periods := opts.Periods
	if len(periods) == 0 {
		periods = []types.RatePeriod{{Label: "Period 0", Color: "#808080"}}
	}
	matrix := opts.Matrix.Clamped(len(periods))
	gid := string(opts.GridID)

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="grid-box" id="grid-%s" data-grid="%s">`+"\n", gid, gid)
	fmt.Fprintf(&b, `<div class="grid-title">%s</div>`+"\n", html.EscapeString(opts.Title))

	// Period legend / paint selector.
	b.WriteString(`<div class="grid-periods">` + "\n")
	for idx, p := range periods {
		sel := ""
		if idx == opts.ActivePeriod {
			sel = " sel"
		}
		fmt.Fprintf(&b,
			`<button class="pbtn%s" data-p="%d" style="background:%s"><span class="pl">%s</span><span class="pr">$%.4f%s</span></button>`+"\n",
			sel, idx, p.Color, html.EscapeString(p.Label), p.Total(), html.EscapeString(unitSuffix(opts.RateUnit)))
	}
	b.WriteString(`</div>` + "\n")

	// Hour header row.
	b.WriteString(`<div class="grid-rows"><div class="grid-row grid-head"><div class="mlabel"></div>`)
	for hi := 0; hi < types.ScheduleHours; hi++ {
		fmt.Fprintf(&b, `<div class="hlabel">%s</div>`, HourLabel(hi))
	}
	b.WriteString(`</div>` + "\n")

	// Month rows.
	for mi := 0; mi < types.ScheduleMonths; mi++ {
		fmt.Fprintf(&b, `<div class="grid-row"><div class="mlabel">%s</div>`, types.MonthNames[mi])
		for hi := 0; hi < types.ScheduleHours; hi++ {
			pi := matrix.At(mi, hi)
			p := periods[pi]
			rateText := ""
			if opts.ShowRates {
				rateText = fmt.Sprintf("%.3f", p.Total())
			}
			fmt.Fprintf(&b,
				`<div class="cell" data-m="%d" data-h="%d" data-p="%d" style="background:%s">%s</div>`,
				mi, hi, pi, p.Color, rateText)
		}
		b.WriteString(`</div>` + "\n")
	}
	b.WriteString(`</div>` + "\n")

	// Bulk-fill controls.
	b.WriteString(`<div class="grid-fills">`)
	for _, f := range []struct{ action, label string }{
		{"fill-all", "Fill All"},
		{"fill-row", "Fill Month Row"},
		{"fill-column", "Fill Hour Column"},
		{"clear", "Clear All"},
	} {
		fmt.Fprintf(&b, `<button class="fbtn" data-action="%s" data-grid="%s">%s</button>`, f.action, gid, f.label)
	}
	if opts.CopyFrom != "" {
		fmt.Fprintf(&b, `<button class="fbtn" data-action="copy" data-grid="%s" data-from="%s">Copy from %s</button>`,
			gid, string(opts.CopyFrom), html.EscapeString(copyLabel(opts.CopyFrom)))
	}
	b.WriteString(`</div>` + "\n")

	b.WriteString(`<div class="grid-hint">Click and drag to paint. Select a period above, then paint on the grid. Hours indicate the hour starting at (e.g. 1PM = 1:00 PM &ndash; 1:59 PM).</div>` + "\n")
	b.WriteString(`</div>` + "\n")
	return b.String()
}

// unitSuffix turns "$/kWh" into "/kWh" for the legend rate text.
func unitSuffix(rateUnit string) string {
	return strings.TrimPrefix(rateUnit, "$")
}

// copyLabel turns "energy_weekday" into "Energy Weekday".
func copyLabel(g types.GridID) string {
	parts := strings.Split(string(g), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
