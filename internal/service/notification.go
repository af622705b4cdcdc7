package service

import (
	"context"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// settlementNotice addresses a settlement event to one user on every channel.
func settlementNotice(userID int32, title, message string, attrs map[string]string) domain.Notification {
	return domain.Notification{
		UserID:     userID,
		Channels:   []domain.NotificationChannel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelPush},
		Title:      title,
		Message:    message,
		Attributes: attrs,
	}
}
