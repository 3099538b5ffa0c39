package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"orbsim/internal/model"
	"orbsim/internal/sizing"
)

func testParams() Params {
	return Params{
		OpeningRangeBars:   5,
		ATRFraction:        0.1,
		TargetR:            math.Inf(1),
		CommissionPerShare: 0.005,
		Sizing: sizing.Params{
			Equity:       25000,
			RiskFraction: 0.01,
			MaxLeverage:  4,
			MinShares:    1,
		},
	}
}

func bar(min int, o, h, l, c float64) model.Bar {
	return model.Bar{
		Symbol: "TEST",
		Time:   time.Date(2024, 1, 2, 9, 30+min, 0, 0, time.UTC),
		Open:   o, High: h, Low: l, Close: c,
	}
}

func bullishSession(extra ...model.Bar) model.Session {
	bars := []model.Bar{
		bar(0, 100, 101, 99.8, 100.5),
		bar(1, 100.5, 102, 100, 101),
		bar(2, 101, 102.5, 100.5, 101.5),
		bar(3, 101.5, 102.4, 101, 101.8),
		bar(4, 101.8, 102.3, 101.2, 102),
	}
	bars = append(bars, extra...)
	return model.Session{
		Symbol: "TEST",
		Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Bars:   bars,
	}
}

var atr10 = model.VolatilityEstimate{ATR: 10}

func TestSimulate_LongBreakoutStoppedOut(t *testing.T) {
	s := bullishSession(
		bar(5, 102.2, 103.2, 102.1, 103),   // closes above OR high 102.5 -> entry 103
		bar(6, 102.5, 102.8, 101.9, 102.2), // low 101.9 <= stop 102
	)
	tr, reason := Simulate(s, atr10, testParams())
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.Side != model.SideLong {
		t.Errorf("expected long side, got %s", tr.Side)
	}
	if tr.EntryPrice != 103 {
		t.Errorf("expected entry 103, got %v", tr.EntryPrice)
	}
	if tr.Qty != 250 {
		t.Errorf("expected qty 250 (risk cap 250 vs exposure cap 970), got %d", tr.Qty)
	}
	if tr.StopPrice != 102 {
		t.Errorf("expected stop 102, got %v", tr.StopPrice)
	}
	if tr.ExitReason != model.ExitStop || tr.ExitPrice != 102 {
		t.Errorf("expected stop exit at 102, got %s at %v", tr.ExitReason, tr.ExitPrice)
	}
	if tr.GrossPnL != -250 {
		t.Errorf("expected gross -250, got %v", tr.GrossPnL)
	}
	if want := -250 - 250*0.005*2; tr.NetPnL != want {
		t.Errorf("expected net %v, got %v", want, tr.NetPnL)
	}
	if tr.HoldMinutes != 1 {
		t.Errorf("expected 1 minute hold, got %d", tr.HoldMinutes)
	}
}

func TestSimulate_DojiDayNoTrade(t *testing.T) {
	bars := []model.Bar{
		bar(0, 100, 101, 99, 100.5),
		bar(1, 100.5, 101, 99.5, 100.2),
		bar(2, 100.2, 101, 99.5, 100.8),
		bar(3, 100.8, 101, 99.5, 100.4),
		bar(4, 100.4, 101, 99.5, 100), // close5 == open5 exactly
		bar(5, 100, 102, 99, 101.5),
	}
	s := model.Session{Symbol: "TEST", Date: bars[0].Time.Truncate(24 * time.Hour), Bars: bars}
	tr, reason := Simulate(s, atr10, testParams())
	if tr != nil {
		t.Fatalf("expected no trade on a doji day, got %+v", tr)
	}
	if reason != NoTradeFlatBias {
		t.Errorf("expected flat_bias, got %s", reason)
	}
}

func TestSimulate_InsufficientBars(t *testing.T) {
	s := model.Session{
		Symbol: "TEST",
		Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Bars: []model.Bar{
			bar(0, 100, 101, 99, 100.5),
			bar(1, 100.5, 101, 99.5, 100.8),
			bar(2, 100.8, 101, 99.5, 101),
		},
	}
	tr, reason := Simulate(s, atr10, testParams())
	if tr != nil || reason != NoTradeInsufficientBars {
		t.Fatalf("expected insufficient_bars, got trade=%v reason=%s", tr, reason)
	}
}

func TestSimulate_NoBreakout(t *testing.T) {
	s := bullishSession(
		bar(5, 102, 102.4, 101.5, 102.1), // never closes above 102.5
		bar(6, 102.1, 102.5, 101.5, 102),
	)
	tr, reason := Simulate(s, atr10, testParams())
	if tr != nil || reason != NoTradeNoBreakout {
		t.Fatalf("expected no_breakout, got trade=%v reason=%s", tr, reason)
	}
}

func TestSimulate_ZeroQty(t *testing.T) {
	s := bullishSession(bar(5, 102.2, 103.2, 102.1, 103))
	tr, reason := Simulate(s, model.VolatilityEstimate{ATR: 0}, testParams())
	if tr != nil || reason != NoTradeZeroQty {
		t.Fatalf("expected zero_qty for zero risk distance, got trade=%v reason=%s", tr, reason)
	}
}

// Both stop and target crossed within the entry bar itself: the stop
// wins, and the entry bar is eligible for the check.
func TestSimulate_SameBarTieStopWins(t *testing.T) {
	p := testParams()
	p.TargetR = 1 // target 104, stop 102 around entry 103
	s := bullishSession(
		bar(5, 102.2, 104.5, 101.9, 103), // high > 104 and low <= 102
	)
	tr, reason := Simulate(s, atr10, p)
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.ExitReason != model.ExitStop {
		t.Errorf("expected stop to win the same-bar tie, got %s", tr.ExitReason)
	}
	if tr.ExitPrice != 102 {
		t.Errorf("expected exit at stop 102, got %v", tr.ExitPrice)
	}
	if !tr.ExitTime.Equal(tr.EntryTime) {
		t.Errorf("expected exit on the entry bar")
	}
}

func TestSimulate_TargetGapClamp(t *testing.T) {
	p := testParams()
	p.TargetR = 1 // target 104
	s := bullishSession(
		bar(5, 102.2, 103.2, 102.1, 103), // entry 103
		bar(6, 105, 105.5, 104.8, 105.2), // gaps open past the target
	)
	tr, reason := Simulate(s, atr10, p)
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.ExitReason != model.ExitTarget {
		t.Fatalf("expected target exit, got %s", tr.ExitReason)
	}
	if tr.ExitPrice != 105 {
		t.Errorf("expected exit at the gap open 105, never worse than target 104, got %v", tr.ExitPrice)
	}
}

func TestSimulate_EODExit(t *testing.T) {
	extra := []model.Bar{bar(5, 102.2, 103.2, 102.5, 103)}
	// drift sideways above the stop until the close
	for i := 6; i < 9; i++ {
		extra = append(extra, bar(i, 103, 103.5, 102.5, 103.2))
	}
	extra = append(extra, model.Bar{
		Symbol: "TEST",
		Time:   time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC),
		Open:   103.2, High: 103.6, Low: 102.8, Close: 103.5,
	})
	s := bullishSession(extra...)
	tr, reason := Simulate(s, atr10, testParams())
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.ExitReason != model.ExitEOD {
		t.Fatalf("expected end-of-day exit, got %s", tr.ExitReason)
	}
	if tr.ExitPrice != 103.5 {
		t.Errorf("expected exit at the 16:00 close 103.5, got %v", tr.ExitPrice)
	}
	if tr.ExitTime.Hour() != 16 {
		t.Errorf("expected exit at 16:00, got %s", tr.ExitTime)
	}
}

func TestSimulate_ShortBreakout(t *testing.T) {
	bars := []model.Bar{
		bar(0, 102, 102.5, 101, 101.5),
		bar(1, 101.5, 102, 100.8, 101.2),
		bar(2, 101.2, 101.8, 100.5, 101),
		bar(3, 101, 101.5, 100.2, 100.8),
		bar(4, 100.8, 101.2, 100, 100.5), // bearish range, OR low 100
		bar(5, 100.4, 100.6, 99.5, 99.8), // closes below OR low -> entry 99.8
		bar(6, 99.9, 100.9, 99.7, 100.8), // high >= stop 100.8
	}
	s := model.Session{Symbol: "TEST", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Bars: bars}
	tr, reason := Simulate(s, atr10, testParams())
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.Side != model.SideShort {
		t.Fatalf("expected short side, got %s", tr.Side)
	}
	if tr.StopPrice != 100.8 {
		t.Errorf("expected stop 100.8, got %v", tr.StopPrice)
	}
	if tr.ExitReason != model.ExitStop || tr.ExitPrice != 100.8 {
		t.Errorf("expected stop exit at 100.8, got %s at %v", tr.ExitReason, tr.ExitPrice)
	}
	if want := (99.8 - 100.8) * float64(tr.Qty); math.Abs(tr.GrossPnL-want) > 1e-9 {
		t.Errorf("expected gross %v, got %v", want, tr.GrossPnL)
	}
}

func TestSimulate_SplitAdjustedRiskDistance(t *testing.T) {
	s := bullishSession(
		bar(5, 102.2, 103.2, 102.1, 103),
		bar(6, 102.5, 102.8, 100.9, 102.2),
	)
	// Reference daily open is half the session open: a 2:1 split since
	// the ATR reference period. Risk distance doubles, quantity halves.
	est := model.VolatilityEstimate{ATR: 10, RefOpen: 50}
	tr, reason := Simulate(s, est, testParams())
	if tr == nil {
		t.Fatalf("expected a trade, got no-trade (%s)", reason)
	}
	if tr.RiskDist != 2 {
		t.Errorf("expected split-adjusted risk distance 2, got %v", tr.RiskDist)
	}
	if tr.Qty != 125 {
		t.Errorf("expected qty 125, got %d", tr.Qty)
	}
	if tr.StopPrice != 101 {
		t.Errorf("expected stop 101, got %v", tr.StopPrice)
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	s := bullishSession(
		bar(5, 102.2, 103.2, 102.1, 103),
		bar(6, 102.5, 102.8, 101.9, 102.2),
	)
	first, _ := Simulate(s, atr10, testParams())
	for i := 0; i < 10; i++ {
		again, _ := Simulate(s, atr10, testParams())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %+v vs %+v", i, first, again)
		}
	}
}
