package saver

import (
	"github.com/parquet-go/parquet-go"

	"orbsim/internal/model"
)

// ParquetSaver writes the trade table as a Parquet file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(trades []model.Trade, path string) error {
	rows := make([]Row, len(trades))
	for i, t := range trades {
		rows[i] = ToRow(t)
	}
	return parquet.WriteFile(path, rows)
}
