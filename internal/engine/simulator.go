package engine

import (
	"math"
	"time"

	"orbsim/internal/model"
	"orbsim/internal/session"
	"orbsim/internal/sizing"
)

// Params fixes all strategy knobs for one simulation run.
type Params struct {
	OpeningRangeBars   int
	ATRFraction        float64 // fraction of prior-day ATR used as the stop distance
	TargetR            float64 // reward multiple of the risk distance; +Inf disables the target
	CommissionPerShare float64
	Sizing             sizing.Params
}

// NoTradeReason tells why a session produced no trade. Every value is a
// normal outcome, never an error.
type NoTradeReason string

const (
	NoTradeInsufficientBars NoTradeReason = "insufficient_bars"
	NoTradeFlatBias         NoTradeReason = "flat_bias"
	NoTradeNoBreakout       NoTradeReason = "no_breakout"
	NoTradeZeroQty          NoTradeReason = "zero_qty"
	NoTradeNoExitBar        NoTradeReason = "no_exit_bar"
)

// Simulate runs the opening-range-breakout state machine over one
// session. It returns the single simulated trade, or nil and the reason
// the session was skipped. The function is pure: identical inputs
// always produce an identical outcome.
//
// Exit conventions: the entry bar's own high/low is eligible for
// stop/target checks; when both levels are crossed first within the
// same bar, the stop wins.
func Simulate(s model.Session, vol model.VolatilityEstimate, p Params) (*model.Trade, NoTradeReason) {
	or, ok := session.OpeningRange(s, p.OpeningRangeBars)
	if !ok {
		return nil, NoTradeInsufficientBars
	}

	side := session.Direction(or)
	if side == model.SideNone {
		return nil, NoTradeFlatBias
	}

	entryIdx := findBreakout(s.Bars, p.OpeningRangeBars, side, or)
	if entryIdx < 0 {
		return nil, NoTradeNoBreakout
	}
	entry := s.Bars[entryIdx].Close

	// Stop distance: a fixed fraction of the prior-day ATR, rescaled
	// when the live series and the ATR's reference series differ by a
	// split factor.
	riskDist := p.ATRFraction * vol.ATR * splitFactor(s.Bars[0].Open, vol.RefOpen)
	qty := sizing.Shares(p.Sizing, entry, riskDist)
	if qty <= 0 {
		return nil, NoTradeZeroQty
	}

	stop, target := placeLevels(side, entry, riskDist, p.TargetR)
	exit, ok := walkPath(s.Bars[entryIdx:], side, stop, target)
	if !ok {
		return nil, NoTradeNoExitBar
	}

	dir := 1.0
	if side == model.SideShort {
		dir = -1
	}
	gross := (exit.price - entry) * float64(qty) * dir
	commissions := float64(qty) * p.CommissionPerShare * 2
	entryTime := s.Bars[entryIdx].Time

	return &model.Trade{
		Date:        s.Date,
		Symbol:      s.Symbol,
		Side:        side,
		EntryTime:   entryTime,
		EntryPrice:  entry,
		Qty:         qty,
		StopPrice:   stop,
		TargetPrice: target,
		ExitTime:    exit.time,
		ExitPrice:   exit.price,
		ExitReason:  exit.reason,
		GrossPnL:    gross,
		Commissions: commissions,
		NetPnL:      gross - commissions,
		HoldMinutes: int(exit.time.Sub(entryTime).Minutes()),
		ORHigh:      or.High,
		ORLow:       or.Low,
		Open5:       or.Open,
		Close5:      or.Close,
		ATRPrev:     vol.ATR,
		RiskDist:    riskDist,
	}, ""
}

// findBreakout returns the index of the first bar after the opening
// range whose close breaches the range extreme in the bias direction,
// or -1 when no bar does.
func findBreakout(bars []model.Bar, n int, side model.Side, or model.OpeningRange) int {
	for i := n; i < len(bars); i++ {
		if side == model.SideLong && bars[i].Close > or.High {
			return i
		}
		if side == model.SideShort && bars[i].Close < or.Low {
			return i
		}
	}
	return -1
}

func splitFactor(sessionOpen, refOpen float64) float64 {
	if refOpen <= 0 {
		return 1
	}
	return sessionOpen / refOpen
}

// placeLevels puts the stop on the losing side of entry and the target,
// when TargetR is finite, on the winning side. An infinite TargetR
// yields an unreachable target, so the trade runs to stop or EOD.
func placeLevels(side model.Side, entry, riskDist, targetR float64) (stop, target float64) {
	if side == model.SideLong {
		stop = entry - riskDist
		target = math.Inf(1)
		if !math.IsInf(targetR, 1) {
			target = entry + targetR*riskDist
		}
		return stop, target
	}
	stop = entry + riskDist
	target = math.Inf(-1)
	if !math.IsInf(targetR, 1) {
		target = entry - targetR*riskDist
	}
	return stop, target
}

type exitPoint struct {
	price  float64
	time   time.Time
	reason model.ExitReason
}

// walkPath scans bars from the entry bar onward for the first stop or
// target breach. Stop exits fill at the stop price. Target exits fill
// at the target, improved to the bar's open when the bar gapped past
// the level, never worse than the target. When both levels are first
// crossed in the same bar the stop wins. With no breach, the position
// closes at the last bar at or before 16:00; ok is false when no such
// bar exists after entry.
func walkPath(path []model.Bar, side model.Side, stop, target float64) (exitPoint, bool) {
	stopIdx, targetIdx := -1, -1
	for i, b := range path {
		if stopIdx < 0 && stopHit(side, b, stop) {
			stopIdx = i
		}
		if targetIdx < 0 && targetHit(side, b, target) {
			targetIdx = i
		}
		if stopIdx >= 0 && targetIdx >= 0 {
			break
		}
	}

	switch {
	case targetIdx >= 0 && (stopIdx < 0 || targetIdx < stopIdx):
		b := path[targetIdx]
		return exitPoint{price: favorable(side, target, b.Open), time: b.Time, reason: model.ExitTarget}, true
	case stopIdx >= 0:
		b := path[stopIdx]
		return exitPoint{price: stop, time: b.Time, reason: model.ExitStop}, true
	}

	// End of day: last bar at or before the 16:00 mark.
	for i := len(path) - 1; i >= 0; i-- {
		b := path[i]
		if b.Time.Hour() < 16 || (b.Time.Hour() == 16 && b.Time.Minute() == 0) {
			return exitPoint{price: b.Close, time: b.Time, reason: model.ExitEOD}, true
		}
	}
	return exitPoint{}, false
}

func stopHit(side model.Side, b model.Bar, stop float64) bool {
	if side == model.SideLong {
		return b.Low <= stop
	}
	return b.High >= stop
}

func targetHit(side model.Side, b model.Bar, target float64) bool {
	if side == model.SideLong {
		return b.High > target
	}
	return b.Low < target
}

// favorable returns the better of the two prices in the trade's
// direction: the higher for longs, the lower for shorts.
func favorable(side model.Side, a, b float64) float64 {
	if side == model.SideLong {
		return math.Max(a, b)
	}
	return math.Min(a, b)
}
