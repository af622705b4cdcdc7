package domain

import "time"

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
	ChannelPush  NotificationChannel = "push"
)

// Notification is a settlement event addressed to one user. Delivery is best effort.
type Notification struct {
	ID         int32                 `json:"id"`
	UserID     int32                 `json:"user_id"`
	Channels   []NotificationChannel `json:"channels"`
	Title      string                `json:"title"`
	Message    string                `json:"message"`
	IsRead     bool                  `json:"is_read"`
	Attributes map[string]string     `json:"attributes"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Contact is where a user can be reached outside the app.
type Contact struct {
	UserID      int32  `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	DeviceToken string `json:"device_token"`
}
