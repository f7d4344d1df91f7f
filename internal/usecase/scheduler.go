package usecase

import (
	"context"
	"log/slog"
	"time"

	"trendsense/internal/ports"
)

// Scheduler wires the interval driver with recurring pipeline runs.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	keywords []string
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ETL jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, keywords []string, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, keywords: keywords, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.pipeline.Run(ctx, s.keywords); err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
			}
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
