// Package scheduler runs periodic maintenance for the editorial pipeline.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	repairTimeout = 2 * time.Minute
	reportTimeout = 10 * time.Second
)

// StatusRepairer normalizes stored statuses that are not in the registry.
type StatusRepairer interface {
	RepairStatuses(ctx context.Context) (int64, error)
}

// DeadLetters reports how many notification jobs exhausted their retries.
type DeadLetters interface {
	DeadLetterCount(ctx context.Context) (int64, error)
}

// Specs are the cron expressions for each job. An empty spec disables the job.
type Specs struct {
	StatusRepair string // e.g. "0 3 * * *"
	DLQReport    string // e.g. "*/15 * * * *"
}

// Scheduler wraps a cron engine with the maintenance jobs.
type Scheduler struct {
	engine   *cron.Cron
	repairer StatusRepairer
	dlq      DeadLetters
	specs    Specs
	logger   *zap.Logger
}

// New creates a scheduler. repairer and dlq may be nil to disable their jobs.
func New(repairer StatusRepairer, dlq DeadLetters, specs Specs, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		engine:   cron.New(cron.WithLocation(time.UTC)),
		repairer: repairer,
		dlq:      dlq,
		specs:    specs,
		logger:   logger,
	}
}

// Start registers the jobs and starts the engine. A malformed spec is returned as an error.
func (s *Scheduler) Start() error {
	if s.repairer != nil && s.specs.StatusRepair != "" {
		if _, err := s.engine.AddFunc(s.specs.StatusRepair, s.RepairStatuses); err != nil {
			return fmt.Errorf("status repair job %q: %w", s.specs.StatusRepair, err)
		}
	}
	if s.dlq != nil && s.specs.DLQReport != "" {
		if _, err := s.engine.AddFunc(s.specs.DLQReport, s.ReportDeadLetters); err != nil {
			return fmt.Errorf("dlq report job %q: %w", s.specs.DLQReport, err)
		}
	}
	s.engine.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.engine.Entries())))
	return nil
}

// Stop stops the engine and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RepairStatuses runs one status repair pass.
func (s *Scheduler) RepairStatuses() {
	ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
	defer cancel()
	n, err := s.repairer.RepairStatuses(ctx)
	if err != nil {
		s.logger.Error("status repair failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("repaired invalid statuses", zap.Int64("rows", n))
	}
}

// ReportDeadLetters logs the dead-letter queue depth when it is non-empty.
func (s *Scheduler) ReportDeadLetters() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	n, err := s.dlq.DeadLetterCount(ctx)
	if err != nil {
		s.logger.Error("dlq report failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("notification jobs in dead-letter queue", zap.Int64("count", n))
	}
}
