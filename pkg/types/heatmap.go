package types

import (
	"fmt"
	"math"
	"sort"
)

// HeatmapColor maps a normalized position in [0, 1] onto a
// green -> yellow -> red gradient and returns it as "#rrggbb".
// 0 is pure green (lowest rate), 0.5 yellow, 1 red (highest rate).
func HeatmapColor(norm float64) string {
	norm = math.Max(0, math.Min(1, norm))
	var r, g, b int
	if norm <= 0.5 {
		r = int(math.Round(255 * norm * 2))
		g = 200
		b = int(math.Round(100 * (1 - norm*2)))
	} else {
		r = 255
		g = int(math.Round(200 * (1 - (norm-0.5)*2)))
		b = 0
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// AssignHeatmapColors colors each period by the dense rank of its total
// rate among all periods: the cheapest distinct total gets green, the
// most expensive red, and periods with equal totals share a color.
// Ranking rather than min-max normalizing keeps every period visually
// distinguishable even when the rates are clustered close together, and
// makes the colors invariant to the scale and sign of the rates.
func AssignHeatmapColors(periods []RatePeriod) {
	n := len(periods)
	if n == 0 {
		return
	}
	if n == 1 {
		periods[0].Color = HeatmapColor(0)
		return
	}

	type rated struct {
		total float64
		index int
	}
	indexed := make([]rated, n)
	for i, p := range periods {
		indexed[i] = rated{total: p.Total(), index: i}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		return indexed[i].total < indexed[j].total
	})

	// Dense ranks: ties share a rank, each strictly greater total
	// increments it.
	ranks := make([]int, n)
	rank := 0
	for pos, r := range indexed {
		if pos > 0 && r.total != indexed[pos-1].total {
			rank++
		}
		ranks[r.index] = rank
	}
	maxRank := rank

	for i := range periods {
		norm := 0.0
		if maxRank > 0 {
			norm = float64(ranks[i]) / float64(maxRank)
		}
		periods[i].Color = HeatmapColor(norm)
	}
}
