package model

import "time"

// Side is the direction of a simulated trade.
type Side string

const (
	SideLong  Side = "BUY"
	SideShort Side = "SELL"
	SideNone  Side = "NONE"
)

// ExitReason tells how a simulated position was closed.
type ExitReason string

const (
	ExitStop   ExitReason = "STOP"
	ExitTarget ExitReason = "TARGET"
	ExitEOD    ExitReason = "EOD"
)

// Trade is the outcome of simulating one session. It is immutable once
// appended to the ledger.
type Trade struct {
	Date        time.Time
	Symbol      string
	Side        Side
	EntryTime   time.Time
	EntryPrice  float64
	Qty         int
	StopPrice   float64
	TargetPrice float64 // +Inf (long) / -Inf (short) when no target is set
	ExitTime    time.Time
	ExitPrice   float64
	ExitReason  ExitReason
	GrossPnL    float64
	Commissions float64
	NetPnL      float64
	HoldMinutes int

	// Opening-range and volatility context, carried for the output table.
	ORHigh   float64
	ORLow    float64
	Open5    float64
	Close5   float64
	ATRPrev  float64
	RiskDist float64
}

// Summary holds aggregate statistics over a trade ledger.
type Summary struct {
	Trades        int
	WinRate       float64
	AvgGross      float64
	AvgNet        float64
	ExpectancyNet float64
	MedianHoldMin float64
}
