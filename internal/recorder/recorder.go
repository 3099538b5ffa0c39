package recorder

import "orbsim/internal/model"

// RunInfo describes one completed backtest run.
type RunInfo struct {
	Symbols   string
	StartDate string
	EndDate   string
	Summary   model.Summary
}

// Recorder persists backtest history for later analysis.
type Recorder interface {
	RecordRun(info *RunInfo, trades []model.Trade) error
	Close() error
}
