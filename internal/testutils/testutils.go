// Package testutils holds helpers shared by the package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ecoh2o/portal/internal/config"
	"github.com/ecoh2o/portal/internal/logging"
)

// NewTestRecordID creates a new RecordID for testing purposes.
func NewTestRecordID(table string) *surrealmodels.RecordID {
	id := surrealmodels.NewRecordID(table, uuid.NewString())
	return &id
}

// ConfigForTests loads the .env.test file and returns a valid config.Provider.
// This is the definitive way to get configuration for integration tests.
func ConfigForTests(t *testing.T) config.Provider {
	t.Helper()

	// Find the project root by looking for go.mod to reliably locate .env.test.
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil {
		t.Fatalf("failed to load .env.test file: %v", err)
	}

	// t.Setenv scopes the variables to this test.
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()

	return config.New()
}
