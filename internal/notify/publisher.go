package notify

import (
	"context"
	"encoding/json"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic carries settlement notifications from the engine to the dispatcher.
const Topic = "settlement.notifications"

// Publisher queues a notification for delivery. It never fails the caller:
// delivery problems are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification)
}

// NewPubSub builds the in-process channel shared by the publisher and the dispatcher.
func NewPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
}

type watermillPublisher struct {
	pub   message.Publisher
	topic string
}

func NewPublisher(pub message.Publisher) Publisher {
	return &watermillPublisher{pub: pub, topic: Topic}
}

func (p *watermillPublisher) Publish(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Error("Failed to marshal notification", "userID", n.UserID, "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := p.pub.Publish(p.topic, msg); err != nil {
		logger.Error("Failed to publish notification", "userID", n.UserID, "title", n.Title, "error", err)
		return
	}
	logger.Debug("Notification published", "userID", n.UserID, "title", n.Title, "messageID", msg.UUID)
}

type noopPublisher struct{}

// NewNoopPublisher discards every notification.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(ctx context.Context, n domain.Notification) {}
