package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Order statuses. Only Status is expected to change after creation, and only
// by an external actor (dispatch, delivery crew), never by this client.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusDelivering = "delivering"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is a water delivery order, immutable once created apart from its
// status. Prices are in FCFA. CreatedAt is an RFC3339 UTC timestamp stored as
// a string; lexicographic order matches chronological order.
type Order struct {
	ID              *surrealmodels.RecordID `json:"id,omitempty"`
	OwnerID         string                  `json:"owner_id"`
	Product         string                  `json:"product"`
	Quantity        int                     `json:"quantity"`
	UnitPrice       int                     `json:"unit_price"`
	TotalPrice      int                     `json:"total_price"`
	DeliveryAddress string                  `json:"delivery_address"`
	Phone           string                  `json:"phone"`
	Notes           string                  `json:"notes,omitempty"`
	Status          string                  `json:"status"`
	CreatedAt       string                  `json:"created_at"`
}

// OrderRepository defines the contract for order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	// ListByOwner returns the identity's orders, creation time descending.
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
}
