package database

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/domain"
)

// SurrealSubscriptionStore implements domain.SubscriptionRepository.
type SurrealSubscriptionStore struct {
	db *surrealdb.DB
}

// NewSurrealSubscriptionStore creates a new SurrealSubscriptionStore.
func NewSurrealSubscriptionStore(db *surrealdb.DB) *SurrealSubscriptionStore {
	return &SurrealSubscriptionStore{db: db}
}

// Create persists a new waste subscription.
func (s *SurrealSubscriptionStore) Create(ctx context.Context, sub *domain.WasteSubscription) (*domain.WasteSubscription, error) {
	if sub.CreatedAt == "" {
		sub.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	query := fmt.Sprintf("CREATE %s CONTENT $data", TableSubscriptions)
	created, err := QueryOne[domain.WasteSubscription](ctx, s.db, query, map[string]any{"data": sub})
	if err != nil {
		return nil, fmt.Errorf("subscription create failed: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("subscription create returned no row")
	}
	return created, nil
}

// ListByOwner returns the identity's subscriptions, newest first.
func (s *SurrealSubscriptionStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.WasteSubscription, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE owner_id = $owner ORDER BY created_at DESC", TableSubscriptions)
	subs, err := Query[domain.WasteSubscription](ctx, s.db, query, map[string]any{"owner": ownerID})
	if err != nil {
		return nil, fmt.Errorf("subscription list failed: %w", err)
	}
	return subs, nil
}
