package postgresql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
)

// ErrNoTestDatabase is returned when TEST_DATABASE_URL is not set.
var ErrNoTestDatabase = errors.New("TEST_DATABASE_URL is not set")

// TestDatabaseSetup holds a connection to a disposable engine database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the migrations.
func NewTestDatabase(ctx context.Context) (*TestDatabaseSetup, error) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		return nil, ErrNoTestDatabase
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 4, MinConns: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &TestDatabaseSetup{DB: db}, nil
}

// TruncateAllTables removes every row from the engine tables.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	_, err := t.DB.Exec(ctx, "TRUNCATE TABLE "+strings.Join(postgresql.Tables, ", ")+" CASCADE")
	return err
}

func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
