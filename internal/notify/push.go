package notify

import (
	"context"
	"fmt"

	"driveshare-settlement/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

type fcmSender struct {
	client *messaging.Client
}

// NewFCMSender connects to Firebase Cloud Messaging with a service account file.
func NewFCMSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &fcmSender{client: client}, nil
}

func (s *fcmSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	logger.ExternalServiceCall("FCM", "Send", "title", title)
	id, err := s.client.Send(ctx, msg)
	logger.ExternalServiceResult("FCM", "Send", err, "messageID", id)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}

type noopPushSender struct{}

func NewNoopPushSender() PushSender {
	return noopPushSender{}
}

func (noopPushSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	return nil
}
