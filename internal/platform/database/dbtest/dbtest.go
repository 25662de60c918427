// Package dbtest gives integration tests a migrated PostgreSQL schema of
// their own. Tests are skipped unless POS_TEST_DATABASE_DSN is set.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/ridloal/punto-venta/internal/platform/database"
	"github.com/stretchr/testify/require"
)

const (
	EnvDSN    = "POS_TEST_DATABASE_DSN"
	EnvDriver = "POS_TEST_DB_DRIVER"
)

// Open connects, recreates schema and migrates it. The pool is pinned to a
// single connection so the search_path set here applies to every query.
func Open(t testing.TB, schema string) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL integration test", EnvDSN)
	}
	driver := os.Getenv(EnvDriver)
	if driver == "" {
		driver = "pgx"
	}

	db, err := database.Connect(driver, dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, stmt := range []string{
		`DROP SCHEMA IF EXISTS ` + schema + ` CASCADE`,
		`CREATE SCHEMA ` + schema,
		`SET search_path TO ` + schema,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, database.Migrate(ctx, db))

	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
		db.Close()
	})
	return db
}
