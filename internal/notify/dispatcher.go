package notify

import (
	"context"
	"encoding/json"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Dispatcher consumes published notifications and fans them out to the requested channels.
type Dispatcher struct {
	sub   message.Subscriber
	store repository.NotificationRepository
	email EmailSender
	push  PushSender
}

func NewDispatcher(sub message.Subscriber, store repository.NotificationRepository, email EmailSender, push PushSender) *Dispatcher {
	return &Dispatcher{sub: sub, store: store, email: email, push: push}
}

// Run subscribes to the notification topic and processes messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.sub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			d.processMessage(ctx, msg)
		}
		logger.Info("Notification dispatcher stopped")
	}()

	return nil
}

func (d *Dispatcher) processMessage(ctx context.Context, msg *message.Message) {
	var n domain.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		logger.Error("Failed to unmarshal notification", "messageID", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	d.Deliver(ctx, n)
	msg.Ack()
}

// Deliver sends one notification on each of its channels. Failures are logged per channel.
func (d *Dispatcher) Deliver(ctx context.Context, n domain.Notification) {
	logger.EnterMethod("Dispatcher.Deliver", "userID", n.UserID, "title", n.Title, "channels", n.Channels)

	var contact *domain.Contact
	loadContact := func() *domain.Contact {
		if contact != nil {
			return contact
		}
		c, err := d.store.GetContact(ctx, n.UserID)
		if err != nil {
			logger.Warn("Contact lookup failed", "userID", n.UserID, "error", err)
			return nil
		}
		contact = c
		return contact
	}

	for _, ch := range n.Channels {
		switch ch {
		case domain.ChannelInApp:
			note := n
			if err := d.store.Create(ctx, &note); err != nil {
				logger.Error("Failed to store in-app notification", "userID", n.UserID, "error", err)
			}
		case domain.ChannelEmail:
			c := loadContact()
			if c == nil || c.Email == "" {
				logger.Debug("No email on file", "userID", n.UserID)
				continue
			}
			if err := d.email.Send(ctx, c.Email, c.Name, n.Title, n.Message); err != nil {
				logger.Error("Failed to send email notification", "userID", n.UserID, "error", err)
			}
		case domain.ChannelPush:
			c := loadContact()
			if c == nil || c.DeviceToken == "" {
				logger.Debug("No device token on file", "userID", n.UserID)
				continue
			}
			if err := d.push.Send(ctx, c.DeviceToken, n.Title, n.Message, n.Attributes); err != nil {
				logger.Error("Failed to send push notification", "userID", n.UserID, "error", err)
			}
		default:
			logger.Warn("Unknown notification channel", "channel", ch)
		}
	}

	logger.ExitMethod("Dispatcher.Deliver", "userID", n.UserID)
}
