package ledger

import (
	"sort"

	"orbsim/internal/model"
)

// Ledger is an append-only ordered sequence of simulated trades, at
// most one per (symbol, trading date). It is owned by a single run and
// never shared across concurrent simulations.
type Ledger struct {
	trades []model.Trade
}

// Append records a trade. Trades are never mutated afterwards.
func (l *Ledger) Append(t model.Trade) {
	l.trades = append(l.trades, t)
}

// Sort orders the ledger by (date, symbol, entry time).
func (l *Ledger) Sort() {
	sort.Slice(l.trades, func(i, j int) bool {
		a, b := l.trades[i], l.trades[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.EntryTime.Before(b.EntryTime)
	})
}

// Trades returns the recorded trades in ledger order.
func (l *Ledger) Trades() []model.Trade {
	return l.trades
}

// Summarize derives aggregate statistics over the full ledger. An empty
// ledger yields all-zero statistics, not an error.
func (l *Ledger) Summarize() model.Summary {
	n := len(l.trades)
	if n == 0 {
		return model.Summary{}
	}

	var wins int
	var grossSum, netSum float64
	holds := make([]float64, n)
	for i, t := range l.trades {
		if t.NetPnL > 0 {
			wins++
		}
		grossSum += t.GrossPnL
		netSum += t.NetPnL
		holds[i] = float64(t.HoldMinutes)
	}

	avgNet := netSum / float64(n)
	return model.Summary{
		Trades:        n,
		WinRate:       float64(wins) / float64(n),
		AvgGross:      grossSum / float64(n),
		AvgNet:        avgNet,
		ExpectancyNet: avgNet,
		MedianHoldMin: median(holds),
	}
}

func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
