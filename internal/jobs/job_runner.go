package jobs

import (
	"time"

	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/service"
)

// JobRunner coordinates all scheduled settlement jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Refund service.RefundService
	Payout service.PayoutService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllDailyJobs runs every settlement job once (for manual execution)
func (jr *JobRunner) RunAllDailyJobs() {
	jr.CreatePendingRefunds()
	jr.ReportOverdueRefunds()
	jr.ProcessDuePayouts()
}
