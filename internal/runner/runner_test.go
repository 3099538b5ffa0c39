package runner

import (
	"math"
	"reflect"
	"testing"
	"time"

	"orbsim/internal/engine"
	"orbsim/internal/model"
	"orbsim/internal/sizing"
	"orbsim/internal/volatility"
)

func params() engine.Params {
	return engine.Params{
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

func dailyHistory(sym string) []model.DailyBar {
	bars := make([]model.DailyBar, 20)
	for i := range bars {
		bars[i] = model.DailyBar{
			Symbol: sym,
			Date:   time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Open:   100, High: 101, Low: 99, Close: 100,
		}
	}
	return bars
}

// tradingSession breaks out long and stops out, like the engine tests.
func tradingSession(sym string, day int) model.Session {
	mk := func(min int, o, h, l, c float64) model.Bar {
		return model.Bar{
			Symbol: sym,
			Time:   time.Date(2024, 1, day, 9, 30+min, 0, 0, time.UTC),
			Open:   o, High: h, Low: l, Close: c,
		}
	}
	return model.Session{
		Symbol: sym,
		Date:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Bars: []model.Bar{
			mk(0, 100, 101, 99.8, 100.5),
			mk(1, 100.5, 102, 100, 101),
			mk(2, 101, 102.5, 100.5, 101.5),
			mk(3, 101.5, 102.4, 101, 101.8),
			mk(4, 101.8, 102.3, 101.2, 102),
			mk(5, 102.2, 103.2, 102.1, 103),
			mk(6, 102.5, 102.8, 101.9, 102.2),
		},
	}
}

func TestRun_CollectsAndSorts(t *testing.T) {
	daily := append(dailyHistory("AAA"), dailyHistory("BBB")...)
	vol := volatility.BuildTable(daily, 14)

	sessions := []model.Session{
		tradingSession("BBB", 17),
		tradingSession("AAA", 18),
		tradingSession("AAA", 17),
		tradingSession("CCC", 17), // no daily history -> skipped
	}

	led, stats := Run(sessions, vol, params(), 4)
	if stats.Sessions != 4 {
		t.Errorf("expected 4 sessions, got %d", stats.Sessions)
	}
	if stats.NoVol != 1 {
		t.Errorf("expected 1 session without volatility, got %d", stats.NoVol)
	}
	if stats.Trades != 3 {
		t.Fatalf("expected 3 trades, got %d", stats.Trades)
	}

	trades := led.Trades()
	order := []struct {
		day int
		sym string
	}{{17, "AAA"}, {17, "BBB"}, {18, "AAA"}}
	for i, w := range order {
		if trades[i].Date.Day() != w.day || trades[i].Symbol != w.sym {
			t.Errorf("position %d: expected %d/%s, got %d/%s",
				i, w.day, w.sym, trades[i].Date.Day(), trades[i].Symbol)
		}
	}
}

// At most one trade per session, and per (symbol, date).
func TestRun_AtMostOneTradePerSession(t *testing.T) {
	vol := volatility.BuildTable(dailyHistory("AAA"), 14)
	sessions := []model.Session{tradingSession("AAA", 17)}
	led, _ := Run(sessions, vol, params(), 2)
	if got := len(led.Trades()); got != 1 {
		t.Fatalf("expected exactly 1 trade, got %d", got)
	}
}

// Identical inputs yield an identical ledger regardless of worker count
// or interleaving.
func TestRun_Deterministic(t *testing.T) {
	daily := append(dailyHistory("AAA"), dailyHistory("BBB")...)
	vol := volatility.BuildTable(daily, 14)
	sessions := []model.Session{
		tradingSession("AAA", 17),
		tradingSession("BBB", 17),
		tradingSession("AAA", 18),
		tradingSession("BBB", 18),
	}

	base, _ := Run(sessions, vol, params(), 1)
	for _, workers := range []int{2, 4, 8} {
		led, _ := Run(sessions, vol, params(), workers)
		if !reflect.DeepEqual(base.Trades(), led.Trades()) {
			t.Fatalf("workers=%d produced a different ledger", workers)
		}
	}
}

func TestRun_EmptyInput(t *testing.T) {
	vol := volatility.BuildTable(nil, 14)
	led, stats := Run(nil, vol, params(), 4)
	if stats.Sessions != 0 || len(led.Trades()) != 0 {
		t.Fatalf("expected an empty run, got %+v", stats)
	}
	if sm := led.Summarize(); sm.Trades != 0 || sm.WinRate != 0 {
		t.Errorf("expected all-zero summary, got %+v", sm)
	}
}
