package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Profile is the mutable display/contact projection attached to an Identity,
// keyed 1:1 by owner. It is created lazily on first authenticated load if
// absent and never deleted by this system.
type Profile struct {
	ID       *surrealmodels.RecordID `json:"id,omitempty"`
	OwnerID  string                  `json:"owner_id"`
	FullName string                  `json:"full_name,omitempty"`
	Phone    string                  `json:"phone,omitempty"`
	Address  string                  `json:"address,omitempty"`
}

// ProfileUpdate carries a partial profile edit. Nil fields are left untouched
// by the merge.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// Apply merges the provided fields into p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
}

// IsEmpty reports whether the update carries no fields at all.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Phone == nil && u.Address == nil
}

// ProfileRepository defines the contract for profile persistence.
type ProfileRepository interface {
	// FindByOwner returns the profile for an identity, or ErrNotFound.
	FindByOwner(ctx context.Context, ownerID string) (*Profile, error)
	// Create stores a fresh profile row for an identity.
	Create(ctx context.Context, profile *Profile) (*Profile, error)
	// Merge applies a partial update to the owner's profile row.
	Merge(ctx context.Context, ownerID string, update ProfileUpdate) error
}
