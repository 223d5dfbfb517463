// Package pgtest starts a disposable PostgreSQL container with the Verity
// schema applied. It is only imported from integration tests.
package pgtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	verityPostgres "github.com/verityux/verity/pkg/storage/postgres"
)

// NewDB starts a PostgreSQL container, migrates it and registers cleanup with t
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("verity_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := verityPostgres.Open(ctx, verityPostgres.ConnectionConfig{URL: connStr, MaxOpenConns: 10})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, verityPostgres.Migrate(ctx, db), "Failed to run migrations")

	return db
}
