package testutil

import (
	"context"
	"database/sql"
	"testing"

	"catalog-ingest/pkg/migrations"
)

// OpenDB opens an in-memory sqlite database with the given schema applied, it is
// closed when the test ends.
func OpenDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	sqldb, err := migrations.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqldb.Close() })

	err = migrations.Migrate(context.Background(), sqldb, schema)
	if err != nil {
		t.Fatal(err)
	}
	return sqldb
}
