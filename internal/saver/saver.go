package saver

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"orbsim/internal/model"
)

// TradeSaver persists a trade table to disk in one output format.
// Callers inject the implementation; the pipeline only depends on the
// interface.
type TradeSaver interface {
	Save(trades []model.Trade, path string) error
	Extension() string
}

// New returns the saver for a format (csv, json or parquet), or an
// error for an unknown one.
func New(format string) (TradeSaver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}, nil
	case "json":
		return JSONSaver{}, nil
	case "parquet":
		return ParquetSaver{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use: csv, json, parquet)", format)
	}
}

// Row is the serialized trade record. Fixed column order; prices carry
// 4 decimals and P&L fields 2, rounded here and nowhere earlier — the
// simulation keeps full precision.
type Row struct {
	Date        string  `json:"date" parquet:"date"`
	Symbol      string  `json:"symbol" parquet:"symbol"`
	Side        string  `json:"side" parquet:"side"`
	EntryTime   string  `json:"entry_time" parquet:"entry_time"`
	EntryPrice  float64 `json:"entry_price" parquet:"entry_price"`
	Qty         int64   `json:"qty" parquet:"qty"`
	StopPrice   float64 `json:"stop_price" parquet:"stop_price"`
	ExitTime    string  `json:"exit_time" parquet:"exit_time"`
	ExitPrice   float64 `json:"exit_price" parquet:"exit_price"`
	ExitReason  string  `json:"exit_reason" parquet:"exit_reason"`
	GrossPnL    float64 `json:"gross_pnl" parquet:"gross_pnl"`
	Commissions float64 `json:"commissions" parquet:"commissions"`
	NetPnL      float64 `json:"net_pnl" parquet:"net_pnl"`
	HoldMinutes int64   `json:"hold_minutes" parquet:"hold_minutes"`
	ORHigh      float64 `json:"or_high" parquet:"or_high"`
	ORLow       float64 `json:"or_low" parquet:"or_low"`
	Open5       float64 `json:"open5" parquet:"open5"`
	Close5      float64 `json:"close5" parquet:"close5"`
	ATR14Prev   float64 `json:"atr14_prev" parquet:"atr14_prev"`
	ATR10Pct    float64 `json:"atr10pct" parquet:"atr10pct"`
}

const timeLayout = "2006-01-02 15:04:05-07:00"

// Header is the canonical trade-table column order.
var Header = []string{
	"date", "symbol", "side", "entry_time", "entry_price", "qty",
	"stop_price", "exit_time", "exit_price", "exit_reason",
	"gross_pnl", "commissions", "net_pnl", "hold_minutes",
	"or_high", "or_low", "open5", "close5", "atr14_prev", "atr10pct",
}

// ToRow rounds and formats one trade for serialization.
func ToRow(t model.Trade) Row {
	return Row{
		Date:        t.Date.Format("2006-01-02"),
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		EntryTime:   t.EntryTime.Format(timeLayout),
		EntryPrice:  roundPrice(t.EntryPrice),
		Qty:         int64(t.Qty),
		StopPrice:   roundPrice(t.StopPrice),
		ExitTime:    t.ExitTime.Format(timeLayout),
		ExitPrice:   roundPrice(t.ExitPrice),
		ExitReason:  string(t.ExitReason),
		GrossPnL:    roundCash(t.GrossPnL),
		Commissions: roundCash(t.Commissions),
		NetPnL:      roundCash(t.NetPnL),
		HoldMinutes: int64(t.HoldMinutes),
		ORHigh:      roundPrice(t.ORHigh),
		ORLow:       roundPrice(t.ORLow),
		Open5:       roundPrice(t.Open5),
		Close5:      roundPrice(t.Close5),
		ATR14Prev:   roundPrice(t.ATRPrev),
		ATR10Pct:    roundPrice(t.RiskDist),
	}
}

func roundPrice(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func roundCash(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
