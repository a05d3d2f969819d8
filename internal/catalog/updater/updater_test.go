package updater

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/chrono"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/db"
	"catalog-ingest/lib/testutil"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fixture struct {
	sqldb   *sql.DB
	qry     *db.Queries
	clock   chrono.Fixed
	tel     telemetry.Recorder
	updater Updater
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sqldb := testutil.OpenDB(t, db.Schema)

	qry := db.New(sqldb)
	clock := chrono.NewFixed(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))
	tel := telemetry.NewRecorder()
	return fixture{
		sqldb:   sqldb,
		qry:     qry,
		clock:   clock,
		tel:     tel,
		updater: NewUpdater(qry, db.NewMakeTx(sqldb), clock, tel),
	}
}

func record(footnotes map[int]catalog.Footnote, score int) ProgramRecord {
	parse := catalog.NewParseResult()
	parse.Buckets["core"] = catalog.RequirementBucket{Kind: catalog.KIND_CATEGORY, Name: "Core", Courses: []string{"CS 1301"}, CreditsRequired: 3}
	parse.Categories = []string{"core"}
	parse.Footnotes = footnotes
	parse.ExtractedCourses = []string{"CS 1301"}
	parse.CoursesFound = 1

	expected := 3.0
	return ProgramRecord{
		Program:  catalog.Program{Name: "Computer Science - BS", Url: "https://catalog.gatech.edu/programs/computer-science-bs/"},
		BaseName: "Computer Science - BS",
		Pattern:  "requirements_section",
		Parse:    parse,
		Mapping: catalog.MappingResult{
			MappedRequirements: map[string]catalog.MappedCategory{
				"core": {Kind: catalog.KIND_CATEGORY, Name: "Core", CourseIds: []int64{1}, ExpectedCredits: &expected},
				"flexible_humanities": {Kind: catalog.KIND_FLEXIBLE, Area: "humanities", ExpectedCredits: &expected},
				"gen_ed_wellness": {Kind: catalog.KIND_GEN_ED, Area: "wellness"},
			},
			TotalCourses: 1,
			MappedCount:  1,
			QualityScore: score,
		},
	}
}

func TestUpdateProgramOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.updater.UpdateProgram(ctx, record(map[int]catalog.Footnote{
		1: {Content: "one", RuleType: catalog.FOOTNOTE_GENERAL_RULE},
		2: {Content: "two", RuleType: catalog.FOOTNOTE_GRADE_REQUIREMENT, MappedCourses: []string{"CS 1301"}},
		3: {Content: "three", RuleType: catalog.FOOTNOTE_GENERAL_RULE},
	}, 70))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.updater.UpdateProgram(ctx, record(map[int]catalog.Footnote{
		5: {Content: "five", RuleType: catalog.FOOTNOTE_CREDIT_LIMIT},
	}, 90))
	require.NoError(t, err)
	require.Equal(t, first, second)

	programs, err := f.qry.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, programs, 1)

	program := programs[0]
	require.Equal(t, "BS", program.DegreeType)
	require.Equal(t, 6.0, program.TotalCredits)
	require.Equal(t, int64(90), gjson.Get(program.ScrapingMetadata, "qualityScore").Int())
	require.Equal(t, "2024-08-01T12:00:00Z", gjson.Get(program.ScrapingMetadata, "firstScrapedAt").String())
	require.Equal(t, "2024-08-01T13:00:00Z", gjson.Get(program.ScrapingMetadata, "lastScrapedAt").String())
	require.Equal(t, "Core", gjson.Get(program.Requirements, "categoryRequirements.core.name").String())
	require.Equal(t, "core", gjson.Get(program.Requirements, "categories.0").String())
	require.True(t, gjson.Get(program.Requirements, "flexibleRequirements.flexible_humanities").Exists())
	require.True(t, gjson.Get(program.GenEdRequirements, "gen_ed_wellness").Exists())

	footnotes, err := f.qry.GetProgramFootnotes(ctx, second)
	require.NoError(t, err)
	require.Len(t, footnotes, 1)
	require.Equal(t, int64(5), footnotes[0].Number)
	require.Equal(t, "credit_limit", footnotes[0].RuleType)
	require.Equal(t, "[]", footnotes[0].MappedCourses)
}

func TestUpdateProgramWithoutName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec := record(nil, 70)
	rec.BaseName = "  "
	rec.Program.Name = ""

	_, err := f.updater.UpdateProgram(ctx, rec)
	require.ErrorIs(t, err, ErrMissingName)

	programs, err := f.qry.ListPrograms(ctx)
	require.NoError(t, err)
	require.Empty(t, programs)
}

func TestUpdateProgramMatchesConcentration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec := record(nil, 80)
	rec.ConcentrationName = "Devices"
	id, err := f.updater.UpdateProgram(ctx, rec)
	require.NoError(t, err)

	stored, err := f.qry.GetProgramByName(ctx, "Computer Science - BS (Devices)")
	require.NoError(t, err)
	require.Equal(t, id, stored.ID)

	// renamed in the catalog, still the same base program and concentration
	rec.Name = "Computer Science - BS (Devices Thread)"
	again, err := f.updater.UpdateProgram(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, id, again)

	other := record(nil, 80)
	other.ConcentrationName = "Theory"
	theory, err := f.updater.UpdateProgram(ctx, other)
	require.NoError(t, err)
	require.NotEqual(t, id, theory)
}

func TestSessionCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stats, err := f.updater.CreateSession(ctx, 3)
	require.NoError(t, err)
	require.NotEmpty(t, stats.SessionId)

	stats.Record(catalog.STATUS_SUCCESS)
	stats.Record(catalog.STATUS_FAILED)
	require.False(t, f.updater.UpdateSession(ctx, stats, SESSION_RUNNING).Failed())

	stats.Record(catalog.STATUS_PARTIAL)
	require.False(t, f.updater.UpdateSession(ctx, stats, SESSION_COMPLETED).Failed())
	require.False(t, f.updater.UpdateSession(ctx, stats, SESSION_COMPLETED).Failed())

	session, err := f.qry.GetSession(ctx, stats.SessionId)
	require.NoError(t, err)
	require.Equal(t, SESSION_COMPLETED, session.Status)
	require.Equal(t, int64(3), session.TotalPrograms)
	require.Equal(t, int64(3), session.ProcessedPrograms)
	require.Equal(t, int64(1), session.SuccessfulPrograms)
	require.Equal(t, int64(1), session.PartialPrograms)
	require.Equal(t, int64(1), session.FailedPrograms)
	require.True(t, session.FinishedAt.Valid)
}

func TestLogResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	outcome := f.updater.LogResult(ctx, "session", catalog.ProcessingResult{
		Program: catalog.Program{Name: "Physics - BS", Url: "https://catalog.gatech.edu/programs/physics-bs/"},
		Status:  catalog.STATUS_FAILED,
		Message: "pattern detection failed",
		Err:     errors.New("no navigation pattern yielded valid content"),
		NavigationPath: []catalog.NavigationStep{
			{Url: "https://catalog.gatech.edu/programs/physics-bs/#threadstext", Type: "thread_section"},
		},
		Elapsed: 1500 * time.Millisecond,
	})
	require.False(t, outcome.Failed())
	require.Empty(t, outcome.Warning())

	results, err := f.qry.ListSessionResults(ctx, "session")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "failed", results[0].Status)
	require.Equal(t, int64(1500), results[0].ElapsedMs)
	require.Equal(t, "pattern detection failed: no navigation pattern yielded valid content", results[0].Message)
	require.Equal(t, "thread_section", gjson.Get(results[0].NavigationPath, "0.type").String())
}

func TestLogResultFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.sqldb.Close())

	outcome := f.updater.LogResult(ctx, "session", catalog.ProcessingResult{
		Program: catalog.Program{Name: "Physics - BS"},
		Status:  catalog.STATUS_SUCCESS,
	})
	require.True(t, outcome.Failed())
	require.NotEmpty(t, outcome.Warning())
	require.Len(t, f.tel.Reports("warning", "log-result"), 1)
}
