package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/domain"
)

// SurrealUserStore implements domain.UserRepository against SurrealDB record
// access (the "account" access method defined in the schema).
type SurrealUserStore struct {
	db     *surrealdb.DB
	ns     string
	dbName string
}

// NewSurrealUserStore creates a new SurrealUserStore.
func NewSurrealUserStore(db *surrealdb.DB, ns, dbName string) *SurrealUserStore {
	return &SurrealUserStore{db: db, ns: ns, dbName: dbName}
}

// SignUp creates the backing account through record access and returns the
// session token the provider issues. The provider signs the user in
// implicitly as part of sign-up; we preserve that semantic.
func (s *SurrealUserStore) SignUp(ctx context.Context, user *domain.User, password string) (string, error) {
	params := map[string]interface{}{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       "account",
		"email":    user.Email,
		"password": password,
	}
	if user.Name != nil {
		params["name"] = *user.Name
	}

	token, err := s.db.SignUp(ctx, params)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", domain.ErrUserAlreadyExists
		}
		return "", fmt.Errorf("provider sign-up failed: %w", err)
	}

	slog.Info("Successfully signed up user", "email", user.Email)
	return token, nil
}

// SignIn exchanges credentials for a session token.
func (s *SurrealUserStore) SignIn(ctx context.Context, user *domain.User, password string) (string, error) {
	token, err := s.db.SignIn(ctx, map[string]interface{}{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       "account",
		"email":    user.Email,
		"password": password,
	})
	if err != nil {
		// The driver reports a rejected pair as an authentication problem;
		// anything else is a transport or provider fault.
		if strings.Contains(err.Error(), "authentication") || strings.Contains(err.Error(), "credentials") {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("provider sign-in failed: %w", err)
	}

	slog.Info("Successfully signed in user", "email", user.Email)
	return token, nil
}

// Authenticate validates a session token and returns the associated user.
func (s *SurrealUserStore) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	// This validates the token against the 'account' access method and sets
	// the auth context for subsequent queries on this connection.
	if err := s.db.Authenticate(ctx, token); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	users, err := Query[domain.User](ctx, s.db, "SELECT * FROM $auth", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}

	if len(users) == 0 || users[0].ID == nil {
		return nil, fmt.Errorf("no authenticated user found")
	}

	user := &users[0]
	user.Password = ""
	return user, nil
}
