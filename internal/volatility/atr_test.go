package volatility

import (
	"math"
	"testing"
	"time"

	"orbsim/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// flatDays builds n daily bars with a constant true range of 2.
func flatDays(sym string, n int) []model.DailyBar {
	bars := make([]model.DailyBar, n)
	for i := 0; i < n; i++ {
		bars[i] = model.DailyBar{
			Symbol: sym,
			Date:   day(i + 1),
			Open:   10, High: 11, Low: 9, Close: 10,
		}
	}
	return bars
}

func TestComputeATR_ConstantTrueRange(t *testing.T) {
	points := ComputeATR(flatDays("AAA", 20), 14)
	for i := 0; i < 14; i++ {
		if !math.IsNaN(points[i].ATR) {
			t.Errorf("point %d: expected NaN while the window fills, got %v", i, points[i].ATR)
		}
	}
	for i := 14; i < 20; i++ {
		if points[i].ATR != 2 {
			t.Errorf("point %d: expected ATR 2, got %v", i, points[i].ATR)
		}
	}
}

func TestComputeATR_GapTrueRange(t *testing.T) {
	// A gap day: TR must use the previous close, not just high-low.
	bars := []model.DailyBar{
		{Symbol: "AAA", Date: day(1), Open: 10, High: 11, Low: 9, Close: 10},
		{Symbol: "AAA", Date: day(2), Open: 15, High: 16, Low: 14.5, Close: 15},
	}
	points := ComputeATR(bars, 1)
	// TR = max(16-14.5, |16-10|, |14.5-10|) = 6
	if points[1].ATR != 6 {
		t.Errorf("expected gap TR 6, got %v", points[1].ATR)
	}
}

func TestLookup_StrictlyBefore(t *testing.T) {
	table := BuildTable(flatDays("AAA", 20), 14)

	// The first defined ATR point is day 15; a session on day 15 may
	// only see strictly earlier values, which are all NaN.
	if _, ok := table.Lookup("AAA", day(15)); ok {
		t.Error("expected no estimate for the first defined ATR day itself")
	}
	est, ok := table.Lookup("AAA", day(16))
	if !ok {
		t.Fatal("expected an estimate one day after the window filled")
	}
	if est.ATR != 2 {
		t.Errorf("expected ATR 2, got %v", est.ATR)
	}
	if est.RefOpen != 10 {
		t.Errorf("expected the session date's daily open 10, got %v", est.RefOpen)
	}
}

func TestLookup_FirstDayOfHistory(t *testing.T) {
	table := BuildTable(flatDays("AAA", 20), 14)
	if _, ok := table.Lookup("AAA", day(1)); ok {
		t.Error("expected no estimate on the first day of history")
	}
}

func TestLookup_UnknownSymbol(t *testing.T) {
	table := BuildTable(flatDays("AAA", 20), 14)
	if _, ok := table.Lookup("ZZZ", day(16)); ok {
		t.Error("expected no estimate for an unknown symbol")
	}
}

func TestLookup_NoDailyBarForSessionDate(t *testing.T) {
	table := BuildTable(flatDays("AAA", 20), 14)
	// Day 25 has no daily bar: the ATR still resolves, RefOpen is zero.
	est, ok := table.Lookup("AAA", day(25))
	if !ok {
		t.Fatal("expected an estimate from the latest prior value")
	}
	if est.RefOpen != 0 {
		t.Errorf("expected zero RefOpen without a daily bar, got %v", est.RefOpen)
	}
}
