package recorder

import "orbsim/internal/model"

// NoopRecorder discards everything. Used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) RecordRun(*RunInfo, []model.Trade) error { return nil }

func (*NoopRecorder) Close() error { return nil }
