package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Settlement   SettlementConfig   `yaml:"settlement"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig contains the lock store settings. Empty Addr disables distributed locking.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// LockTTLSeconds bounds how long a per-booking settlement lock is held
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SettlementConfig holds defaults used when platform_settings rows are missing
type SettlementConfig struct {
	Currency                       string `yaml:"currency"`
	MileageChargingEnabled         *bool  `yaml:"mileage_charging_enabled"`
	TamperingPenaltyAmount         string `yaml:"tampering_penalty_amount"`
	MissingMileagePenaltyAmount    string `yaml:"missing_mileage_penalty_amount"`
	InstantWithdrawalFeePercentage string `yaml:"instant_withdrawal_fee_percentage"`
	PolicyCacheTTLSeconds          int    `yaml:"policy_cache_ttl_seconds"`
	RefundSweepBatchSize           int32  `yaml:"refund_sweep_batch_size"`
}

// GatewayConfig contains refund gateway settings
type GatewayConfig struct {
	Provider             string `yaml:"provider"` // "midtrans" or "mock"
	MidtransServerKey    string `yaml:"midtrans_server_key"`
	Production           bool   `yaml:"production"`
	RefundTimeoutSeconds int    `yaml:"refund_timeout_seconds"`
}

// NotificationConfig contains outbound channel settings
type NotificationConfig struct {
	EmailProvider           string     `yaml:"email_provider"` // "sendgrid", "smtp" or "none"
	SendGridAPIKey          string     `yaml:"sendgrid_api_key"`
	FromEmail               string     `yaml:"from_email"`
	FromName                string     `yaml:"from_name"`
	SMTP                    SMTPConfig `yaml:"smtp"`
	FirebaseCredentialsFile string     `yaml:"firebase_credentials_file"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ProcessDuePayouts    string `yaml:"process_due_payouts"`
	CreatePendingRefunds string `yaml:"create_pending_refunds"`
	ReportOverdueRefunds string `yaml:"report_overdue_refunds"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Gateway
	if val := os.Getenv("MIDTRANS_SERVER_KEY"); val != "" {
		c.Gateway.MidtransServerKey = val
	}

	// Notification
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notification.SendGridAPIKey = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.Notification.SMTP.Password = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Notification.FirebaseCredentialsFile = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Settlement
	if val := os.Getenv("SETTLEMENT_CURRENCY"); val != "" {
		c.Settlement.Currency = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Redis.LockTTLSeconds == 0 {
		c.Redis.LockTTLSeconds = 30
	}

	// Settlement defaults
	if c.Settlement.Currency == "" {
		c.Settlement.Currency = "IDR"
	}
	c.Settlement.Currency = strings.ToUpper(c.Settlement.Currency)
	if c.Settlement.MileageChargingEnabled == nil {
		enabled := true
		c.Settlement.MileageChargingEnabled = &enabled
	}
	if c.Settlement.TamperingPenaltyAmount == "" {
		c.Settlement.TamperingPenaltyAmount = "500000"
	}
	if c.Settlement.MissingMileagePenaltyAmount == "" {
		c.Settlement.MissingMileagePenaltyAmount = "250000"
	}
	if c.Settlement.InstantWithdrawalFeePercentage == "" {
		c.Settlement.InstantWithdrawalFeePercentage = "2.5"
	}
	if c.Settlement.PolicyCacheTTLSeconds == 0 {
		c.Settlement.PolicyCacheTTLSeconds = 60
	}
	if c.Settlement.RefundSweepBatchSize == 0 {
		c.Settlement.RefundSweepBatchSize = 200
	}

	// Gateway defaults
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "midtrans"
	}
	switch c.Gateway.Provider {
	case "midtrans":
		if c.Gateway.MidtransServerKey == "" {
			return fmt.Errorf("midtrans server key is required")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown refund gateway provider: %s", c.Gateway.Provider)
	}
	if c.Gateway.RefundTimeoutSeconds == 0 {
		c.Gateway.RefundTimeoutSeconds = 30
	}

	// Notification defaults
	if c.Notification.EmailProvider == "" {
		c.Notification.EmailProvider = "none"
	}
	switch c.Notification.EmailProvider {
	case "sendgrid":
		if c.Notification.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	case "smtp":
		if c.Notification.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Notification.SMTP.Port <= 0 || c.Notification.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Notification.SMTP.Port)
		}
	case "none":
	default:
		return fmt.Errorf("unknown email provider: %s", c.Notification.EmailProvider)
	}

	// Scheduler defaults
	if c.Scheduler.ProcessDuePayouts == "" {
		c.Scheduler.ProcessDuePayouts = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.CreatePendingRefunds == "" {
		c.Scheduler.CreatePendingRefunds = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.ReportOverdueRefunds == "" {
		c.Scheduler.ReportOverdueRefunds = "0 0 8 * * *" // 8 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) RefundTimeout() time.Duration {
	return time.Duration(c.Gateway.RefundTimeoutSeconds) * time.Second
}

func (c *Config) PolicyCacheTTL() time.Duration {
	return time.Duration(c.Settlement.PolicyCacheTTLSeconds) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}
