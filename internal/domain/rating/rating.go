// Package rating turns a player's success rates into the scalar used for
// rankings and team balancing.
package rating

import "math"

// Weights of the two success rates, in percent. They sum to 100 so the
// rating stays on the same 0-100 scale as its inputs.
const (
	WinWeightPct        = 60
	TriangularWeightPct = 40

	maxPercentage = 100
)

// Breakdown exposes the two weighted components and their total.
type Breakdown struct {
	WinComponent        float64 `json:"win_component"`
	TriangularComponent float64 `json:"triangular_component"`
	Total               float64 `json:"total"`
}

// Result is the V2 rating together with how it was built.
type Result struct {
	Rating    float64   `json:"rating"`
	Breakdown Breakdown `json:"breakdown"`
}

// CalculateV2 combines the match win rate (60%) and the triangular win rate
// (40%), both on a 0-100 scale. Each component is rounded to two decimals
// first and the rating is the sum of the rounded components, so Rating
// always equals Breakdown.Total. This can differ by 0.01 from rounding
// winPct*0.6 + triangularWinPct*0.4 once: CalculateV2(3.125, 1.5625) rates
// 2.51 (1.88 + 0.63) where a single rounding gives 2.50.
func CalculateV2(winPct, triangularWinPct float64) Result {
	winCents := weightedCents(winPct, WinWeightPct)
	triCents := weightedCents(triangularWinPct, TriangularWeightPct)
	total := winCents + triCents

	b := Breakdown{
		WinComponent:        fromCents(winCents),
		TriangularComponent: fromCents(triCents),
		Total:               fromCents(total),
	}
	return Result{Rating: b.Total, Breakdown: b}
}

// V2 is CalculateV2 without the breakdown.
func V2(winPct, triangularWinPct float64) float64 {
	return CalculateV2(winPct, triangularWinPct).Rating
}

// Round2 rounds x to two decimals, halves away from zero.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return fromCents(math.Round(x * 100))
}

// weightedCents returns round(pct * weight/100) expressed in hundredths.
// pct*weightPct is the value in hundredths already, which keeps one
// multiplication between the input and the rounding step.
func weightedCents(pct float64, weightPct int) float64 {
	return math.Round(clamp(pct) * float64(weightPct))
}

func fromCents(c float64) float64 {
	return c / 100
}

func clamp(pct float64) float64 {
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > maxPercentage:
		return maxPercentage
	default:
		return pct
	}
}
