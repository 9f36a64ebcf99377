package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"

	"github.com/ecoh2o/portal/internal/config"
)

// NewDB creates and configures a new SurrealDB connection using the root
// credentials from the configuration, then selects the application
// namespace/database.
func NewDB(ctx context.Context, cfg config.Provider) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.GetDBURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.GetDBUser(),
		Password: cfg.GetDBPass(),
	}

	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.GetDBNs(), cfg.GetDBDb()); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Successfully signed in to SurrealDB")
	return db, nil
}
