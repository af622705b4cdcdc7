package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/gateway"
	"driveshare-settlement/internal/jobs"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/notify"
	"driveshare-settlement/internal/policy"
	"driveshare-settlement/internal/repository/postgres"
	"driveshare-settlement/internal/scheduler"
	"driveshare-settlement/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'process-due-payouts', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting DriveShare Settlement Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	defaults, err := policy.DefaultsFromConfig(cfg.Settlement)
	if err != nil {
		log.Fatalf("Invalid settlement defaults: %v", err)
	}
	policies := policy.NewProvider(store.SettingsRepository, defaults, cfg.PolicyCacheTTL())

	var refundGateway gateway.RefundGateway
	if cfg.Gateway.Provider == "midtrans" {
		refundGateway = gateway.NewMidtransGateway(cfg.Gateway.MidtransServerKey, cfg.Gateway.Production)
	} else {
		refundGateway = gateway.NewSandboxGateway()
	}

	// Initialize Notification pipeline
	emailSender, err := notify.NewEmailSenderFromConfig(cfg.Notification)
	if err != nil {
		log.Fatalf("Failed to initialize email channel: %v", err)
	}
	pushSender, err := notify.NewPushSenderFromConfig(ctx, cfg.Notification)
	if err != nil {
		log.Fatalf("Failed to initialize push channel: %v", err)
	}
	pubSub := notify.NewPubSub()
	defer pubSub.Close()
	dispatcher := notify.NewDispatcher(pubSub, store.NotificationRepository, emailSender, pushSender)
	if err := dispatcher.Run(ctx); err != nil {
		log.Fatalf("Failed to start notification dispatcher: %v", err)
	}
	publisher := notify.NewPublisher(pubSub)

	// Initialize Services
	jobServices := &jobs.Services{
		Refund: service.NewRefundService(store.Repositories, store, refundGateway, cfg.RefundTimeout(), publisher),
		Payout: service.NewPayoutService(store.Repositories, store, policies, publisher, cfg.Settlement.Currency),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "process-due-payouts":
		jobRunner.ProcessDuePayouts()
	case "create-pending-refunds":
		jobRunner.CreatePendingRefunds()
	case "report-overdue-refunds":
		jobRunner.ReportOverdueRefunds()
	case "all":
		jobRunner.RunAllDailyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - process-due-payouts\n")
		fmt.Printf("  - create-pending-refunds\n")
		fmt.Printf("  - report-overdue-refunds\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
