package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an entry in a recipient's append-only event log.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Message   string     `json:"message"`
	BookingID *uuid.UUID `json:"bookingId,omitempty"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
}

func NewNotification(userID uuid.UUID, message string, bookingID *uuid.UUID) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		BookingID: bookingID,
		CreatedAt: time.Now().UTC(),
	}
}

// NotificationCounter is the advisory unread count. It is updated separately
// from the log and may lag it by one event.
type NotificationCounter struct {
	UserID uuid.UUID `json:"userId"`
	Count  int       `json:"count"`
}

// EmailMessage is a rendered email handed to the mail transport.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PushMessage is a single device notification.
type PushMessage struct {
	To        string            `json:"to"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Attempts  int               `json:"attempts,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
