package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler re-runs the backtest pipeline on a cron spec, for setups
// where the input tables are refreshed continuously.
type Scheduler struct {
	Cron *cron.Cron
	Run  func()
}

// New creates a scheduler around the run function.
func New(run func()) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Run:  run,
	}
}

// Register adds the refresh task.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() {
		log.Println("[INFO] scheduled refresh run starting")
		s.Run()
	}); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}
