package saver

import (
	"encoding/csv"
	"os"
	"strconv"

	"orbsim/internal/model"
)

// CSVSaver writes the canonical trade table as CSV.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(trades []model.Trade, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(Header); err != nil {
		return err
	}
	for _, t := range trades {
		r := ToRow(t)
		rec := []string{
			r.Date, r.Symbol, r.Side, r.EntryTime,
			formatF(r.EntryPrice), strconv.FormatInt(r.Qty, 10),
			formatF(r.StopPrice), r.ExitTime, formatF(r.ExitPrice), r.ExitReason,
			formatF(r.GrossPnL), formatF(r.Commissions), formatF(r.NetPnL),
			strconv.FormatInt(r.HoldMinutes, 10),
			formatF(r.ORHigh), formatF(r.ORLow), formatF(r.Open5), formatF(r.Close5),
			formatF(r.ATR14Prev), formatF(r.ATR10Pct),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
