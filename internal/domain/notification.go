package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Notification kinds, used by the presentation layer to pick an alert style.
const (
	NotificationTypeInfo    = "info"
	NotificationTypeSuccess = "success"
	NotificationTypeWarning = "warning"
)

// Notification is a per-identity message created exclusively by the backend
// reacting to business events. The client may only flip IsRead from false to
// true; that transition is one-way.
type Notification struct {
	ID        *surrealmodels.RecordID `json:"id,omitempty"`
	OwnerID   string                  `json:"owner_id"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      string                  `json:"type"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt string                  `json:"created_at"`
}

// RecordID returns the string form of the notification's record id, or ""
// when the row has not been persisted yet.
func (n *Notification) RecordID() string {
	if n.ID == nil {
		return ""
	}
	return n.ID.String()
}

// NotificationRepository defines the contract for notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notif *Notification) (*Notification, error)
	// ListByOwner returns the identity's notifications, creation time descending.
	ListByOwner(ctx context.Context, ownerID string) ([]Notification, error)
	// MarkRead flips is_read to true for a single row.
	MarkRead(ctx context.Context, recordID string) error
}
