package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler drives the Pipeline Orchestrator's periodic full-pipeline
// run and the Maintenance Engine's periodic pass via robfig/cron,
// mirroring the teacher's cron-backed job scheduler generalized down
// to the two jobs this pipeline needs.
type Scheduler struct {
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewScheduler builds an idle Scheduler; call Start to register jobs
// and begin running them.
func NewScheduler(logger arbor.ILogger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Start registers the full-pipeline job (every fullRunInterval, as an
// "@every" spec) and the maintenance job (maintainCron, a standard
// 5-field cron expression), then starts the underlying cron runner.
// Either handler may be nil to leave that job unregistered.
func (s *Scheduler) Start(fullRunInterval string, runFullPipeline func(ctx context.Context) error, maintainCron string, runMaintenance func(ctx context.Context) error) error {
	if runFullPipeline != nil && fullRunInterval != "" {
		spec := "@every " + fullRunInterval
		if _, err := s.cron.AddFunc(spec, s.wrap("full_pipeline", runFullPipeline)); err != nil {
			return fmt.Errorf("scheduling full pipeline %q: %w", spec, err)
		}
	}
	if runMaintenance != nil && maintainCron != "" {
		if _, err := s.cron.AddFunc(maintainCron, s.wrap("maintenance", runMaintenance)); err != nil {
			return fmt.Errorf("scheduling maintenance %q: %w", maintainCron, err)
		}
	}

	s.cron.Start()
	s.logger.Info().Msg("pipeline scheduler started (robfig/cron)")
	return nil
}

// wrap logs panics out of a scheduled job rather than letting them
// take the cron runner's goroutine down with them.
func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Str("job", name).Str("panic", fmt.Sprintf("%v", r)).Msg("scheduled job panicked")
			}
		}()
		if err := fn(context.Background()); err != nil {
			s.logger.Warn().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
