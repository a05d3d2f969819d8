package db

import (
	"context"
	"database/sql"
	"testing"

	"catalog-ingest/lib/testutil"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.OpenDB(t, Schema)
}

func TestCourses(t *testing.T) {
	ctx := context.Background()
	qry := New(openTestDB(t))

	require.NoError(t, qry.UpsertCourse(ctx, UpsertCourseParams{Code: "CS 1331", Title: "OOP", Credits: 3}))
	require.NoError(t, qry.UpsertCourse(ctx, UpsertCourseParams{Code: "CS 1301", Title: "Intro", Credits: 3}))
	require.NoError(t, qry.UpsertCourse(ctx, UpsertCourseParams{Code: "CS 1331", Title: "Object Oriented Programming", Credits: 4}))

	courses, err := qry.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, "CS 1301", courses[0].Code)
	require.Equal(t, "Object Oriented Programming", courses[1].Title)
	require.Equal(t, 4.0, courses[1].Credits)
}

func TestProgramLookupAndFootnotes(t *testing.T) {
	ctx := context.Background()
	qry := New(openTestDB(t))

	_, err := qry.GetProgramByName(ctx, "Computer Science - BS")
	require.ErrorIs(t, err, sql.ErrNoRows)

	id, err := qry.CreateProgram(ctx, CreateProgramParams{
		Name:              "Computer Science - BS (Devices)",
		BaseName:          "Computer Science - BS",
		ConcentrationName: "Devices",
		Requirements:      `{"categories":{}}`,
		CreatedAt:         1,
		UpdatedAt:         1,
	})
	require.NoError(t, err)

	byConcentration, err := qry.GetProgramByConcentration(ctx, GetProgramByConcentrationParams{
		BaseName:          "Computer Science - BS",
		ConcentrationName: "Devices",
	})
	require.NoError(t, err)
	require.Equal(t, id, byConcentration.ID)

	require.NoError(t, qry.UpdateProgram(ctx, UpdateProgramParams{
		ID:                id,
		Requirements:      `{"categories":{"core":{}}}`,
		GenEdRequirements: "{}",
		ScrapingMetadata:  `{"qualityScore":90}`,
		UpdatedAt:         2,
	}))
	updated, err := qry.GetProgramByName(ctx, "Computer Science - BS (Devices)")
	require.NoError(t, err)
	require.Equal(t, `{"categories":{"core":{}}}`, updated.Requirements)
	require.Equal(t, int64(1), updated.CreatedAt)
	require.Equal(t, int64(2), updated.UpdatedAt)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, qry.CreateProgramFootnote(ctx, CreateProgramFootnoteParams{
			ProgramID: id, Number: i, Content: "note", RuleType: "general_rule", MappedCourses: "[]",
		}))
	}
	footnotes, err := qry.GetProgramFootnotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, footnotes, 3)

	require.NoError(t, qry.DeleteProgramFootnotes(ctx, id))
	footnotes, err = qry.GetProgramFootnotes(ctx, id)
	require.NoError(t, err)
	require.Empty(t, footnotes)
}

func TestSessionUpsert(t *testing.T) {
	ctx := context.Background()
	qry := New(openTestDB(t))

	params := UpsertSessionParams{SessionID: "s1", Status: "running", StartedAt: 10, TotalPrograms: 4}
	require.NoError(t, qry.UpsertSession(ctx, params))

	params.ProcessedPrograms = 4
	params.FailedPrograms = 1
	params.Status = "completed"
	params.FinishedAt = sql.NullInt64{Int64: 20, Valid: true}
	require.NoError(t, qry.UpsertSession(ctx, params))
	require.NoError(t, qry.UpsertSession(ctx, params))

	session, err := qry.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "completed", session.Status)
	require.Equal(t, int64(4), session.ProcessedPrograms)
	require.Equal(t, int64(1), session.FailedPrograms)
	require.Equal(t, int64(20), session.FinishedAt.Int64)
}

func TestMakeTx(t *testing.T) {
	ctx := context.Background()
	sqldb := openTestDB(t)
	makeTx := NewMakeTx(sqldb)

	tx, discard, _, err := makeTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateResult(ctx, CreateResultParams{SessionID: "s1", ProgramName: "a", Url: "u", Status: "failed", CreatedAt: 1}))
	require.NoError(t, discard())

	tx, discard, commit, err := makeTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateResult(ctx, CreateResultParams{SessionID: "s1", ProgramName: "b", Url: "u", Status: "success", CreatedAt: 1}))
	require.NoError(t, commit())
	// discarding after a commit is a no-op
	require.NoError(t, discard())

	results, err := New(sqldb).ListSessionResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].ProgramName)
}
