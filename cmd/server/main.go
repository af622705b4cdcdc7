package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "driveshare-settlement/internal/api/http"
	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/gateway"
	"driveshare-settlement/internal/lock"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/notify"
	"driveshare-settlement/internal/policy"
	"driveshare-settlement/internal/repository/postgres"
	"driveshare-settlement/internal/security"
	"driveshare-settlement/internal/service"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting DriveShare Settlement API...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize per-booking settlement lock
	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("Failed to ping redis", "error", err, "addr", cfg.Redis.Addr)
			log.Fatalf("Failed to ping redis: %v", err)
		}
		logger.Info("Redis connection established", "addr", cfg.Redis.Addr)
		locker = lock.NewRedisLocker(client)
	} else {
		logger.Warn("Redis not configured, relying on database row locks only")
		locker = lock.NewLocalLocker()
	}

	// Initialize Policy Provider
	defaults, err := policy.DefaultsFromConfig(cfg.Settlement)
	if err != nil {
		log.Fatalf("Invalid settlement defaults: %v", err)
	}
	policies := policy.NewProvider(store.SettingsRepository, defaults, cfg.PolicyCacheTTL())

	// Initialize Refund Gateway
	var refundGateway gateway.RefundGateway
	switch cfg.Gateway.Provider {
	case "midtrans":
		logger.Info("Refund gateway: Midtrans", "production", cfg.Gateway.Production)
		refundGateway = gateway.NewMidtransGateway(cfg.Gateway.MidtransServerKey, cfg.Gateway.Production)
	default:
		logger.Warn("Refund gateway: sandbox, no money will move")
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
	publisher := notify.NewPublisher(pubSub)
	dispatcher := notify.NewDispatcher(pubSub, store.NotificationRepository, emailSender, pushSender)
	if err := dispatcher.Run(ctx); err != nil {
		log.Fatalf("Failed to start notification dispatcher: %v", err)
	}

	// Initialize Services
	currency := cfg.Settlement.Currency
	mileageSvc := service.NewMileageService(store.Repositories, store, policies, locker, publisher, cfg.LockTTL(), currency)
	chargeSvc := service.NewChargeService(store.Repositories, store, publisher, currency)
	refundSvc := service.NewRefundService(store.Repositories, store, refundGateway, cfg.RefundTimeout(), publisher)
	payoutSvc := service.NewPayoutService(store.Repositories, store, policies, publisher, currency)
	noteSvc := service.NewNotificationService(store.NotificationRepository)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	router := httpapi.NewRouter(httpapi.Services{
		Mileage:       mileageSvc,
		Charges:       chargeSvc,
		Refunds:       refundSvc,
		Payouts:       payoutSvc,
		Notifications: noteSvc,
	}, tokenManager)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
