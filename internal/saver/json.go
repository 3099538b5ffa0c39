package saver

import (
	"encoding/json"
	"os"

	"orbsim/internal/model"
)

// JSONSaver writes the trade table as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(trades []model.Trade, path string) error {
	rows := make([]Row, len(trades))
	for i, t := range trades {
		rows[i] = ToRow(t)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
