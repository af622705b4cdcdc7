package notify

import (
	"context"
	"fmt"

	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/logger"
)

// NewEmailSenderFromConfig picks the email channel named by the notification config.
func NewEmailSenderFromConfig(cfg config.NotificationConfig) (EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		logger.Info("Email channel: SendGrid", "from", cfg.FromEmail)
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName), nil
	case "smtp":
		logger.Info("Email channel: SMTP", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		return NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.FromEmail), nil
	case "", "none":
		logger.Info("Email channel disabled")
		return NewNoopEmailSender(), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.EmailProvider)
	}
}

// NewPushSenderFromConfig connects to FCM when a credentials file is configured.
func NewPushSenderFromConfig(ctx context.Context, cfg config.NotificationConfig) (PushSender, error) {
	if cfg.FirebaseCredentialsFile == "" {
		logger.Info("Push channel disabled")
		return NewNoopPushSender(), nil
	}
	logger.Info("Push channel: Firebase Cloud Messaging")
	return NewFCMSender(ctx, cfg.FirebaseCredentialsFile)
}
