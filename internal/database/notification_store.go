package database

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/domain"
)

// SurrealNotificationStore implements domain.NotificationRepository.
type SurrealNotificationStore struct {
	db *surrealdb.DB
}

// NewSurrealNotificationStore creates a new SurrealNotificationStore.
func NewSurrealNotificationStore(db *surrealdb.DB) *SurrealNotificationStore {
	return &SurrealNotificationStore{db: db}
}

// Create persists a new notification row.
func (s *SurrealNotificationStore) Create(ctx context.Context, notif *domain.Notification) (*domain.Notification, error) {
	if notif.CreatedAt == "" {
		notif.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	query := fmt.Sprintf("CREATE %s CONTENT $data", TableNotifications)
	created, err := QueryOne[domain.Notification](ctx, s.db, query, map[string]any{"data": notif})
	if err != nil {
		return nil, fmt.Errorf("notification create failed: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("notification create returned no row")
	}
	return created, nil
}

// ListByOwner returns the identity's notifications, newest first.
func (s *SurrealNotificationStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Notification, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE owner_id = $owner ORDER BY created_at DESC", TableNotifications)
	notifs, err := Query[domain.Notification](ctx, s.db, query, map[string]any{"owner": ownerID})
	if err != nil {
		return nil, fmt.Errorf("notification list failed: %w", err)
	}
	return notifs, nil
}

// MarkRead flips is_read to true for one row. The transition is one-way, so
// repeating it is harmless.
func (s *SurrealNotificationStore) MarkRead(ctx context.Context, recordID string) error {
	query := "UPDATE type::thing($id) SET is_read = true"
	return Execute(ctx, s.db, query, map[string]any{"id": recordID})
}
