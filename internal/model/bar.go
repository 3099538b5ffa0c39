package model

import "time"

// Bar represents a single intraday candlestick bar.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
}

// DailyBar represents one daily candlestick bar.
type DailyBar struct {
	Symbol string
	Date   time.Time // midnight in the reference zone
	Open   float64
	High   float64
	Low    float64
	Close  float64
}

// Session holds one symbol's regular-hours bars for one trading date,
// ordered by timestamp. A session yields at most one simulated trade.
type Session struct {
	Symbol string
	Date   time.Time
	Bars   []Bar
}

// OpeningRange summarizes the first N bars of a session.
type OpeningRange struct {
	Open  float64 // open of the first bar
	Close float64 // close of the Nth bar
	High  float64 // highest high across the N bars
	Low   float64 // lowest low across the N bars
}

// VolatilityEstimate is the prior-day ATR attached to a trading date.
// RefOpen is that day's unadjusted daily open, used to correct the ATR
// for splits between the reference period and the trade date; zero when
// no daily bar exists for the session date.
type VolatilityEstimate struct {
	ATR     float64
	RefOpen float64
}
