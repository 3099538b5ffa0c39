package volatility

import (
	"math"
	"sort"
	"time"

	"orbsim/internal/model"
)

// Point is one dated ATR value for a symbol. ATR is NaN while the
// lookback window is still filling.
type Point struct {
	Date    time.Time
	ATR     float64
	DayOpen float64
}

// ComputeATR computes the Wilder-smoothed average true range over daily
// bars, one point per input bar. Bars are sorted by date first. The
// first `lookback` points carry NaN: the seed average needs that many
// true ranges, and true range itself needs a prior close.
func ComputeATR(bars []model.DailyBar, lookback int) []Point {
	sorted := make([]model.DailyBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	points := make([]Point, len(sorted))
	atr := math.NaN()
	var trSum float64
	for i, b := range sorted {
		points[i] = Point{Date: b.Date, ATR: math.NaN(), DayOpen: b.Open}
		if i == 0 {
			continue
		}
		tr := trueRange(b, sorted[i-1].Close)
		switch {
		case i < lookback:
			trSum += tr
		case i == lookback:
			atr = (trSum + tr) / float64(lookback)
			points[i].ATR = atr
		default:
			atr = (atr*float64(lookback-1) + tr) / float64(lookback)
			points[i].ATR = atr
		}
	}
	return points
}

func trueRange(b model.DailyBar, prevClose float64) float64 {
	tr := b.High - b.Low
	if d := math.Abs(b.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(b.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// Table maps (symbol, date) to a volatility estimate with the one-day
// look-ahead shift applied at lookup time.
type Table struct {
	points  map[string][]Point
	dayOpen map[string]map[string]float64
}

// BuildTable computes per-symbol ATR series from daily bars.
func BuildTable(daily []model.DailyBar, lookback int) *Table {
	bySym := make(map[string][]model.DailyBar)
	for _, b := range daily {
		bySym[b.Symbol] = append(bySym[b.Symbol], b)
	}
	t := &Table{
		points:  make(map[string][]Point, len(bySym)),
		dayOpen: make(map[string]map[string]float64, len(bySym)),
	}
	for sym, bars := range bySym {
		pts := ComputeATR(bars, lookback)
		t.points[sym] = pts
		opens := make(map[string]float64, len(pts))
		for _, p := range pts {
			opens[p.Date.Format("2006-01-02")] = p.DayOpen
		}
		t.dayOpen[sym] = opens
	}
	return t
}

// Lookup returns the latest defined ATR strictly before date, so the
// estimate for session date D is never derived from any daily bar dated
// >= D. RefOpen is the session date's own unadjusted daily open when a
// daily bar exists for it, zero otherwise. ok is false when no usable
// estimate exists; the caller must skip the session.
func (t *Table) Lookup(symbol string, date time.Time) (model.VolatilityEstimate, bool) {
	pts := t.points[symbol]
	est := model.VolatilityEstimate{}
	found := false
	for i := len(pts) - 1; i >= 0; i-- {
		if !pts[i].Date.Before(date) {
			continue
		}
		if math.IsNaN(pts[i].ATR) {
			continue
		}
		est.ATR = pts[i].ATR
		found = true
		break
	}
	if !found {
		return model.VolatilityEstimate{}, false
	}
	est.RefOpen = t.dayOpen[symbol][date.Format("2006-01-02")]
	return est, true
}
