package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"catalog-ingest/internal/db"

	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	sqldb, err := OpenAndMigrate(ctx, DatabaseConfig{File: path}, db.Schema)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, sqldb, db.Schema))

	qry := db.New(sqldb)
	require.NoError(t, qry.UpsertCourse(ctx, db.UpsertCourseParams{Code: "CS 1301", Title: "Intro", Credits: 3}))
	require.NoError(t, sqldb.Close())

	// data survives reopening the file
	sqldb, err = OpenAndMigrate(ctx, DatabaseConfig{File: path}, db.Schema)
	require.NoError(t, err)
	defer sqldb.Close()

	count, err := db.New(sqldb).CountCourses(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestOpenDBRequiresPath(t *testing.T) {
	_, err := DatabaseConfig{}.Open()
	require.Error(t, err)
}
