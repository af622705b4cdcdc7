package scheduler

import (
	"fmt"
	"time"

	"driveshare-settlement/internal/jobs"
	"driveshare-settlement/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Refund sweep
	if _, err := s.cron.AddFunc(cfg.CreatePendingRefunds, s.jobs.CreatePendingRefunds); err != nil {
		return fmt.Errorf("register CreatePendingRefunds job: %w", err)
	}

	// Overdue refund report
	if _, err := s.cron.AddFunc(cfg.ReportOverdueRefunds, s.jobs.ReportOverdueRefunds); err != nil {
		return fmt.Errorf("register ReportOverdueRefunds job: %w", err)
	}

	// Scheduled owner payouts
	if _, err := s.cron.AddFunc(cfg.ProcessDuePayouts, s.jobs.ProcessDuePayouts); err != nil {
		return fmt.Errorf("register ProcessDuePayouts job: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "jobs", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
