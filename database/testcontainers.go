package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

var (
	dbName = "clarityDB"
	dbUser = "acheron"
	dbPass = "testpass"
)

// StartContainer starts an empty Postgres container and returns its
// connection string. The container is removed when the test ends.
func StartContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	tc.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

// SetupTestDB starts a Postgres container with the LIMS fixture schema and
// returns an open connection to it
func SetupTestDB(t *testing.T) (*pgx.Conn, string) {
	t.Helper()

	ctx := context.Background()
	connStr := StartContainer(t)

	db, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	require.NoError(t, MigrateUp(ctx, db))

	// the schema must drop cleanly before it is reapplied
	require.NoError(t, MigrateDown(ctx, db))
	require.NoError(t, MigrateUp(ctx, db))

	return db, connStr
}
