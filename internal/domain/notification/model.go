// Package notification provides the in-app notification sink.
package notification

import (
	"context"
	"time"

	"craftpos/internal/core/id"
)

// Notification is one message for one user's bell icon.
type Notification struct {
	ID        id.ID     `db:"id" json:"id"`
	UserID    id.ID     `db:"user_id" json:"userId"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Reference string    `db:"reference" json:"reference"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// New creates a notification for a user.
func New(userID id.ID, nType, title, message, reference string) *Notification {
	return &Notification{
		ID:        id.New(),
		UserID:    userID,
		Type:      nType,
		Title:     title,
		Message:   message,
		Reference: reference,
		CreatedAt: time.Now(),
	}
}

// Sink accepts notifications for delivery. The sale orchestrator fans out
// through this interface without knowing the storage behind it.
type Sink interface {
	Notify(ctx context.Context, n *Notification) error
}

// Repository defines storage operations for notifications.
type Repository interface {
	Sink
	ListByUser(ctx context.Context, userID id.ID, unreadOnly bool, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID id.ID) error
}
