package sizing

import "math"

// Params holds account sizing inputs.
type Params struct {
	Equity       float64
	RiskFraction float64 // fraction of equity a stop-out may cost
	MaxLeverage  float64 // notional exposure cap as a multiple of equity
	MinShares    int
}

// Shares computes the position size for a trade entered at price with
// the given stop distance. Two candidates are capped against each
// other: the risk-based count keeps a full stop-out within
// RiskFraction of equity, and the exposure-based count keeps notional
// below MaxLeverage times equity. The floor of the smaller candidate is
// clamped up to MinShares. Non-positive price or risk distance yields 0
// (no trade).
func Shares(p Params, price, riskDist float64) int {
	if riskDist <= 0 || price <= 0 {
		return 0
	}
	riskShares := p.Equity * p.RiskFraction / riskDist
	expoShares := p.MaxLeverage * p.Equity / price
	qty := int(math.Floor(math.Min(riskShares, expoShares)))
	if qty < p.MinShares {
		qty = p.MinShares
	}
	return qty
}
