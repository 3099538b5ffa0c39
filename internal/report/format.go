package report

import (
	"fmt"
	"strings"

	"orbsim/internal/model"
	"orbsim/internal/runner"
)

// FormatSummary renders the human-readable summary block printed after
// a run.
func FormatSummary(sm model.Summary, outPath string) string {
	var b strings.Builder

	b.WriteString("\n=== ORB Backtest Summary ===\n")
	b.WriteString(fmt.Sprintf("%16s: %d\n", "trades", sm.Trades))
	b.WriteString(fmt.Sprintf("%16s: %.4f\n", "win_rate", sm.WinRate))
	b.WriteString(fmt.Sprintf("%16s: %.4f\n", "avg_gross", sm.AvgGross))
	b.WriteString(fmt.Sprintf("%16s: %.4f\n", "avg_net", sm.AvgNet))
	b.WriteString(fmt.Sprintf("%16s: %.4f\n", "expectancy_net", sm.ExpectancyNet))
	b.WriteString(fmt.Sprintf("%16s: %.4f\n", "median_hold_min", sm.MedianHoldMin))
	b.WriteString(fmt.Sprintf("\nSaved trades to: %s\n", outPath))

	return b.String()
}

// FormatStats renders the session-outcome counters for the run log.
func FormatStats(st runner.Stats) string {
	return fmt.Sprintf("sessions=%d trades=%d skipped=%d no_volatility=%d",
		st.Sessions, st.Trades, st.Skipped, st.NoVol)
}
