package domain

import "time"

// Channel is a delivery medium for notifications.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelVoice    Channel = "voice"
	ChannelEmail    Channel = "email"
)

// Notification delivery outcomes.
const (
	NotificationSent        = "Sent"
	NotificationFailed      = "Failed"
	NotificationRateLimited = "RateLimited"
	NotificationSkipped     = "Skipped"
)

// NotificationLog records one delivery attempt.
type NotificationLog struct {
	ID        string    `json:"id"`
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
