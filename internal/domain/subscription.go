package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Waste subscription statuses.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
)

// WasteSubscription is a waste-collection plan subscription. Same
// immutability pattern as Order: status is mutated externally only.
// NextPickup is an RFC3339 date set by the scheduling backend, nil until the
// first pickup is planned.
type WasteSubscription struct {
	ID               *surrealmodels.RecordID `json:"id,omitempty"`
	OwnerID          string                  `json:"owner_id"`
	SubscriptionType string                  `json:"subscription_type"`
	Frequency        string                  `json:"frequency"`
	Price            int                     `json:"price"`
	Address          string                  `json:"address"`
	Phone            string                  `json:"phone"`
	Status           string                  `json:"status"`
	NextPickup       *string                 `json:"next_pickup,omitempty"`
	CreatedAt        string                  `json:"created_at"`
}

// SubscriptionRepository defines the contract for waste subscription persistence.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *WasteSubscription) (*WasteSubscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]WasteSubscription, error)
}
