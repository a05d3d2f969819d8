package db

import (
	"context"
	"database/sql"
)

const upsertSession = `-- name: UpsertSession :exec
insert into scraping_sessions(
    session_id, status, started_at, finished_at, total_programs,
    processed_programs, successful_programs, partial_programs, failed_programs
) values (?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict(session_id) do update set
    status = excluded.status,
    finished_at = excluded.finished_at,
    total_programs = excluded.total_programs,
    processed_programs = excluded.processed_programs,
    successful_programs = excluded.successful_programs,
    partial_programs = excluded.partial_programs,
    failed_programs = excluded.failed_programs
`

type UpsertSessionParams struct {
	SessionID          string
	Status             string
	StartedAt          int64
	FinishedAt         sql.NullInt64
	TotalPrograms      int64
	ProcessedPrograms  int64
	SuccessfulPrograms int64
	PartialPrograms    int64
	FailedPrograms     int64
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession,
		arg.SessionID,
		arg.Status,
		arg.StartedAt,
		arg.FinishedAt,
		arg.TotalPrograms,
		arg.ProcessedPrograms,
		arg.SuccessfulPrograms,
		arg.PartialPrograms,
		arg.FailedPrograms,
	)
	return err
}

const getSession = `-- name: GetSession :one
select session_id, status, started_at, finished_at, total_programs,
    processed_programs, successful_programs, partial_programs, failed_programs
from scraping_sessions
where session_id = ?
`

func (q *Queries) GetSession(ctx context.Context, sessionID string) (ScrapingSession, error) {
	row := q.db.QueryRowContext(ctx, getSession, sessionID)
	var i ScrapingSession
	err := row.Scan(
		&i.SessionID,
		&i.Status,
		&i.StartedAt,
		&i.FinishedAt,
		&i.TotalPrograms,
		&i.ProcessedPrograms,
		&i.SuccessfulPrograms,
		&i.PartialPrograms,
		&i.FailedPrograms,
	)
	return i, err
}

const createResult = `-- name: CreateResult :exec
insert into scraping_results(
    session_id, program_name, url, status, pattern, courses_found, mapped_courses,
    quality_score, elapsed_ms, message, navigation_path, created_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateResultParams struct {
	SessionID      string
	ProgramName    string
	Url            string
	Status         string
	Pattern        string
	CoursesFound   int64
	MappedCourses  int64
	QualityScore   int64
	ElapsedMs      int64
	Message        string
	NavigationPath string
	CreatedAt      int64
}

func (q *Queries) CreateResult(ctx context.Context, arg CreateResultParams) error {
	_, err := q.db.ExecContext(ctx, createResult,
		arg.SessionID,
		arg.ProgramName,
		arg.Url,
		arg.Status,
		arg.Pattern,
		arg.CoursesFound,
		arg.MappedCourses,
		arg.QualityScore,
		arg.ElapsedMs,
		arg.Message,
		arg.NavigationPath,
		arg.CreatedAt,
	)
	return err
}

const listSessionResults = `-- name: ListSessionResults :many
select id, session_id, program_name, url, status, pattern, courses_found, mapped_courses,
    quality_score, elapsed_ms, message, navigation_path, created_at
from scraping_results
where session_id = ?
order by id
`

func (q *Queries) ListSessionResults(ctx context.Context, sessionID string) ([]ScrapingResult, error) {
	rows, err := q.db.QueryContext(ctx, listSessionResults, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScrapingResult
	for rows.Next() {
		var i ScrapingResult
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.ProgramName,
			&i.Url,
			&i.Status,
			&i.Pattern,
			&i.CoursesFound,
			&i.MappedCourses,
			&i.QualityScore,
			&i.ElapsedMs,
			&i.Message,
			&i.NavigationPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
