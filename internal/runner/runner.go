package runner

import (
	"sync"

	"orbsim/internal/engine"
	"orbsim/internal/ledger"
	"orbsim/internal/model"
	"orbsim/internal/volatility"
)

// Stats counts session outcomes for one run.
type Stats struct {
	Sessions int
	Trades   int
	NoVol    int // skipped: no usable prior-day volatility estimate
	Skipped  int // skipped inside the simulator (no-trade outcomes)
}

// Run simulates every session on a bounded worker pool and collects the
// results into a fresh ledger. Sessions are independent: each worker
// reads only its own session and a scalar volatility estimate, so no
// locking is needed beyond the fan-in channel. The final ledger order
// is imposed afterwards by sorting, making the run deterministic
// regardless of worker interleaving.
func Run(sessions []model.Session, vol *volatility.Table, p engine.Params, workers int) (*ledger.Ledger, Stats) {
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		trade *model.Trade
		noVol bool
	}

	jobs := make(chan model.Session)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				est, ok := vol.Lookup(s.Symbol, s.Date)
				if !ok {
					results <- outcome{noVol: true}
					continue
				}
				trade, _ := engine.Simulate(s, est, p)
				results <- outcome{trade: trade}
			}
		}()
	}

	go func() {
		for _, s := range sessions {
			jobs <- s
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	led := &ledger.Ledger{}
	stats := Stats{Sessions: len(sessions)}
	for r := range results {
		switch {
		case r.noVol:
			stats.NoVol++
		case r.trade != nil:
			stats.Trades++
			led.Append(*r.trade)
		default:
			stats.Skipped++
		}
	}
	led.Sort()
	return led, stats
}
