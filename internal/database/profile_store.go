package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/domain"
)

// SurrealProfileStore implements domain.ProfileRepository.
type SurrealProfileStore struct {
	db *surrealdb.DB
}

// NewSurrealProfileStore creates a new SurrealProfileStore.
func NewSurrealProfileStore(db *surrealdb.DB) *SurrealProfileStore {
	return &SurrealProfileStore{db: db}
}

// FindByOwner returns the profile row for an identity, or domain.ErrNotFound.
func (s *SurrealProfileStore) FindByOwner(ctx context.Context, ownerID string) (*domain.Profile, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE owner_id = $owner", TableProfiles)
	profile, err := QueryOne[domain.Profile](ctx, s.db, query, map[string]any{"owner": ownerID})
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

// Create stores a fresh profile row.
func (s *SurrealProfileStore) Create(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	query := fmt.Sprintf("CREATE %s CONTENT $data", TableProfiles)
	created, err := QueryOne[domain.Profile](ctx, s.db, query, map[string]any{"data": profile})
	if err != nil {
		return nil, fmt.Errorf("profile create failed: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("profile create returned no row")
	}
	return created, nil
}

// Merge applies only the fields the update carries to the owner's row.
func (s *SurrealProfileStore) Merge(ctx context.Context, ownerID string, update domain.ProfileUpdate) error {
	fields := map[string]any{}
	if update.FullName != nil {
		fields["full_name"] = *update.FullName
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if update.Address != nil {
		fields["address"] = *update.Address
	}
	if len(fields) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s MERGE $data WHERE owner_id = $owner", TableProfiles)
	return Execute(ctx, s.db, query, map[string]any{"data": fields, "owner": ownerID})
}
