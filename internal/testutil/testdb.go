package testutil

import (
	"context"
	"testing"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.Open(context.Background(), db.Options{Driver: db.SQLite, Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *db.Database) db.UnitOfWork {
	return db.NewUnitOfWork(database)
}

// NewRepos returns repositories over the database outside any transaction.
func NewRepos(database *db.Database) *repository.Repositories {
	return repository.New(database.Conn())
}

// PoolAttempts reads a pool member's attempt counter.
func PoolAttempts(t *testing.T, database *db.Database, poolID, prospectID int64) int {
	t.Helper()
	var n int
	err := database.QueryRowContext(context.Background(),
		`SELECT attempts FROM pool_prospects WHERE pool_id = ? AND prospect_id = ?`, poolID, prospectID).Scan(&n)
	if err != nil {
		t.Fatalf("reading pool attempts: %v", err)
	}
	return n
}
