package database

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/domain"
)

// SurrealOrderStore implements domain.OrderRepository.
type SurrealOrderStore struct {
	db *surrealdb.DB
}

// NewSurrealOrderStore creates a new SurrealOrderStore.
func NewSurrealOrderStore(db *surrealdb.DB) *SurrealOrderStore {
	return &SurrealOrderStore{db: db}
}

// Create persists a new order. CreatedAt is stamped here, as an RFC3339 UTC
// string, so ordering stays comparable without driver datetime quirks.
func (s *SurrealOrderStore) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.CreatedAt == "" {
		order.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	query := fmt.Sprintf("CREATE %s CONTENT $data", TableOrders)
	created, err := QueryOne[domain.Order](ctx, s.db, query, map[string]any{"data": order})
	if err != nil {
		return nil, fmt.Errorf("order create failed: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("order create returned no row")
	}
	return created, nil
}

// ListByOwner returns the identity's orders, newest first.
func (s *SurrealOrderStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE owner_id = $owner ORDER BY created_at DESC", TableOrders)
	orders, err := Query[domain.Order](ctx, s.db, query, map[string]any{"owner": ownerID})
	if err != nil {
		return nil, fmt.Errorf("order list failed: %w", err)
	}
	return orders, nil
}
