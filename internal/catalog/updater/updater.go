// Package updater persists the outcome of a scraping run: degree programs with
// their requirements and footnotes, the run's session counters and an
// append-only log of per-program results.
package updater

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/assert"
	"catalog-ingest/internal/components/chrono"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/db"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	report_db_query               = "db.query"
	report_updater_update_session = "updater.update-session"
	report_updater_log_result     = "updater.log-result"
)

// ErrMissingName is returned for a program record without a base name, which
// happens when discovery scrapes an anchor without text.
var ErrMissingName = errors.New("program has no name")

const (
	SESSION_RUNNING     = "running"
	SESSION_COMPLETED   = "completed"
	SESSION_INTERRUPTED = "interrupted"
)

type Updater struct {
	db     *db.Queries
	makeTx db.MakeTx
	time   chrono.API
	tel    telemetry.API
}

func NewUpdater(
	qry *db.Queries,
	makeTx db.MakeTx,
	time chrono.API,
	tel telemetry.API,
) Updater {
	assert.NotNil(qry)
	assert.NotNil(makeTx)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Updater{
		db:     qry,
		makeTx: makeTx,
		time:   time,
		tel:    telemetry.NewScopedAPI("updater", tel),
	}
}

// CreateSession starts a new scraping session with a fresh id.
func (u Updater) CreateSession(ctx context.Context, totalPrograms int) (catalog.SessionStats, error) {
	stats := catalog.SessionStats{
		SessionId:     uuid.NewString(),
		StartedAt:     u.time.Now(),
		TotalPrograms: totalPrograms,
	}
	err := u.db.UpsertSession(ctx, sessionParams(stats, SESSION_RUNNING, sql.NullInt64{}))
	if err != nil {
		u.tel.ReportBroken(report_db_query, err, "UpsertSession", stats.SessionId)
		return catalog.SessionStats{}, fmt.Errorf("create session: %w", err)
	}
	return stats, nil
}

func sessionParams(stats catalog.SessionStats, status string, finishedAt sql.NullInt64) db.UpsertSessionParams {
	return db.UpsertSessionParams{
		SessionID:          stats.SessionId,
		Status:             status,
		StartedAt:          stats.StartedAt.Unix(),
		FinishedAt:         finishedAt,
		TotalPrograms:      int64(stats.TotalPrograms),
		ProcessedPrograms:  int64(stats.ProcessedPrograms),
		SuccessfulPrograms: int64(stats.SuccessfulPrograms),
		PartialPrograms:    int64(stats.PartialPrograms),
		FailedPrograms:     int64(stats.FailedPrograms),
	}
}

// UpdateSession writes the current counters of a session, writing the same
// counters twice leaves the session unchanged. Any status other than
// SESSION_RUNNING also marks the session as finished.
func (u Updater) UpdateSession(ctx context.Context, stats catalog.SessionStats, status string) BestEffort {
	finishedAt := sql.NullInt64{}
	if status != SESSION_RUNNING {
		finishedAt = sql.NullInt64{Int64: u.time.Now().Unix(), Valid: true}
	}
	err := u.db.UpsertSession(ctx, sessionParams(stats, status, finishedAt))
	if err != nil {
		u.tel.ReportWarning(report_updater_update_session, err, stats.SessionId)
		return BestEffort{err: err}
	}
	return BestEffort{}
}

// ProgramRecord is everything persisted for one degree program (or one
// concentration of a multi-level program).
type ProgramRecord struct {
	Program catalog.Program
	// Name overrides the stored name, it defaults to the base name followed by
	// the concentration in parenthesis.
	Name              string
	BaseName          string
	ConcentrationName string
	SessionId         string
	Pattern           string
	NavigationPath    []catalog.NavigationStep
	Validation        *catalog.ContentValidation
	Parse             catalog.ParseResult
	Mapping           catalog.MappingResult
}

func (r ProgramRecord) StoredName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ConcentrationName == "" {
		return r.BaseName
	}
	return fmt.Sprintf("%s (%s)", r.BaseName, r.ConcentrationName)
}

func (r ProgramRecord) degreeType() string {
	if r.Program.Type != "" {
		return r.Program.Type
	}
	if t := catalog.DegreeType(r.BaseName); t != "" {
		return t
	}
	return catalog.DegreeType(r.Program.Slug())
}

// findProgram looks a program up by exact name first, then by base name and
// concentration.
func findProgram(ctx context.Context, tx *db.Queries, rec ProgramRecord) (db.DegreeProgram, bool, error) {
	existing, err := tx.GetProgramByName(ctx, rec.StoredName())
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.DegreeProgram{}, false, err
	}

	existing, err = tx.GetProgramByConcentration(ctx, db.GetProgramByConcentrationParams{
		BaseName:          rec.BaseName,
		ConcentrationName: rec.ConcentrationName,
	})
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.DegreeProgram{}, false, err
	}
	return db.DegreeProgram{}, false, nil
}

// UpdateProgram creates or overwrites a degree program and replaces all of its
// footnotes in a single transaction. The latest scrape always wins, nothing of
// the previous requirements is kept.
func (u Updater) UpdateProgram(ctx context.Context, rec ProgramRecord) (int64, error) {
	if strings.TrimSpace(rec.BaseName) == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingName, rec.Program.Url)
	}

	now := u.time.Now()
	requirements, genEd, totalCredits, err := buildRequirements(rec)
	if err != nil {
		return 0, fmt.Errorf("encode requirements: %w", err)
	}

	tx, discard, commit, err := u.makeTx(ctx)
	if err != nil {
		u.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return 0, err
	}
	defer discard()

	existing, found, err := findProgram(ctx, tx, rec)
	if err != nil {
		u.tel.ReportBroken(report_db_query, err, "findProgram", rec.StoredName())
		return 0, err
	}

	firstScrapedAt := now
	if found {
		prev := gjson.Get(existing.ScrapingMetadata, "firstScrapedAt")
		if parsed, err := time.Parse(time.RFC3339, prev.String()); prev.Exists() && err == nil {
			firstScrapedAt = parsed
		}
	}
	metadata, err := buildMetadata(rec, firstScrapedAt, now)
	if err != nil {
		return 0, fmt.Errorf("encode scraping metadata: %w", err)
	}

	programId := existing.ID
	if found {
		param := db.UpdateProgramParams{
			ID:                existing.ID,
			Url:               rec.Program.Url,
			DegreeType:        rec.degreeType(),
			TotalCredits:      totalCredits,
			Requirements:      requirements,
			GenEdRequirements: genEd,
			ScrapingMetadata:  metadata,
			UpdatedAt:         now.Unix(),
		}
		err = tx.UpdateProgram(ctx, param)
		if err != nil {
			u.tel.ReportBroken(report_db_query, err, "UpdateProgram", existing.ID)
			return 0, err
		}
	} else {
		param := db.CreateProgramParams{
			Name:              rec.StoredName(),
			BaseName:          rec.BaseName,
			ConcentrationName: rec.ConcentrationName,
			DegreeType:        rec.degreeType(),
			Url:               rec.Program.Url,
			TotalCredits:      totalCredits,
			Requirements:      requirements,
			GenEdRequirements: genEd,
			ScrapingMetadata:  metadata,
			CreatedAt:         now.Unix(),
			UpdatedAt:         now.Unix(),
		}
		programId, err = tx.CreateProgram(ctx, param)
		if err != nil {
			u.tel.ReportBroken(report_db_query, err, "CreateProgram", param.Name)
			return 0, err
		}
	}

	err = tx.DeleteProgramFootnotes(ctx, programId)
	if err != nil {
		u.tel.ReportBroken(report_db_query, err, "DeleteProgramFootnotes", programId)
		return 0, err
	}

	numbers := make([]int, 0, len(rec.Parse.Footnotes))
	for n := range rec.Parse.Footnotes {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		footnote := rec.Parse.Footnotes[n]
		courses, err := json.Marshal(nonNil(footnote.MappedCourses))
		if err != nil {
			return 0, fmt.Errorf("encode footnote %d: %w", n, err)
		}
		err = tx.CreateProgramFootnote(ctx, db.CreateProgramFootnoteParams{
			ProgramID:     programId,
			Number:        int64(n),
			Content:       footnote.Content,
			RuleType:      string(footnote.RuleType),
			MappedCourses: string(courses),
		})
		if err != nil {
			u.tel.ReportBroken(report_db_query, err, "CreateProgramFootnote", programId, n)
			return 0, err
		}
	}

	err = commit()
	if err != nil {
		u.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err), rec.StoredName())
		return 0, err
	}
	return programId, nil
}

// LogResult appends the outcome of a program to the result log. A failure is
// reported as a warning and handed back, it must never fail the program.
func (u Updater) LogResult(ctx context.Context, sessionId string, result catalog.ProcessingResult) BestEffort {
	path, err := json.Marshal(nonNil(result.NavigationPath))
	if err != nil {
		u.tel.ReportWarning(report_updater_log_result, err, result.Program.Name)
		return BestEffort{err: err}
	}

	message := result.Message
	if result.Err != nil {
		if message != "" {
			message += ": "
		}
		message += result.Err.Error()
	}
	if result.Stack != "" {
		message += "\n" + result.Stack
	}

	param := db.CreateResultParams{
		SessionID:      sessionId,
		ProgramName:    result.Program.Name,
		Url:            result.Program.Url,
		Status:         string(result.Status),
		Pattern:        result.Pattern,
		CoursesFound:   int64(result.CoursesFound),
		MappedCourses:  int64(result.MappedCourses),
		QualityScore:   int64(result.QualityScore),
		ElapsedMs:      result.Elapsed.Milliseconds(),
		Message:        message,
		NavigationPath: string(path),
		CreatedAt:      u.time.Now().Unix(),
	}
	err = u.db.CreateResult(ctx, param)
	if err != nil {
		u.tel.ReportWarning(report_updater_log_result, err, result.Program.Name, result.Status)
		return BestEffort{err: err}
	}
	return BestEffort{}
}
