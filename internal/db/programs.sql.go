package db

import (
	"context"
)

const degreeProgramColumns = `id, name, base_name, concentration_name, degree_type, url, total_credits,
    requirements, gen_ed_requirements, scraping_metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDegreeProgram(row rowScanner) (DegreeProgram, error) {
	var i DegreeProgram
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.BaseName,
		&i.ConcentrationName,
		&i.DegreeType,
		&i.Url,
		&i.TotalCredits,
		&i.Requirements,
		&i.GenEdRequirements,
		&i.ScrapingMetadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProgramByName = `-- name: GetProgramByName :one
select ` + degreeProgramColumns + ` from degree_programs
where name = ?
order by id
limit 1
`

func (q *Queries) GetProgramByName(ctx context.Context, name string) (DegreeProgram, error) {
	row := q.db.QueryRowContext(ctx, getProgramByName, name)
	return scanDegreeProgram(row)
}

const getProgramByConcentration = `-- name: GetProgramByConcentration :one
select ` + degreeProgramColumns + ` from degree_programs
where base_name = ? and concentration_name = ?
order by id
limit 1
`

type GetProgramByConcentrationParams struct {
	BaseName          string
	ConcentrationName string
}

func (q *Queries) GetProgramByConcentration(ctx context.Context, arg GetProgramByConcentrationParams) (DegreeProgram, error) {
	row := q.db.QueryRowContext(ctx, getProgramByConcentration, arg.BaseName, arg.ConcentrationName)
	return scanDegreeProgram(row)
}

const listPrograms = `-- name: ListPrograms :many
select ` + degreeProgramColumns + ` from degree_programs
order by name, concentration_name
`

func (q *Queries) ListPrograms(ctx context.Context) ([]DegreeProgram, error) {
	rows, err := q.db.QueryContext(ctx, listPrograms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DegreeProgram
	for rows.Next() {
		i, err := scanDegreeProgram(rows)
		if err != nil {
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

const createProgram = `-- name: CreateProgram :one
insert into degree_programs(
    name, base_name, concentration_name, degree_type, url, total_credits,
    requirements, gen_ed_requirements, scraping_metadata, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
returning id
`

type CreateProgramParams struct {
	Name              string
	BaseName          string
	ConcentrationName string
	DegreeType        string
	Url               string
	TotalCredits      float64
	Requirements      string
	GenEdRequirements string
	ScrapingMetadata  string
	CreatedAt         int64
	UpdatedAt         int64
}

func (q *Queries) CreateProgram(ctx context.Context, arg CreateProgramParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createProgram,
		arg.Name,
		arg.BaseName,
		arg.ConcentrationName,
		arg.DegreeType,
		arg.Url,
		arg.TotalCredits,
		arg.Requirements,
		arg.GenEdRequirements,
		arg.ScrapingMetadata,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateProgram = `-- name: UpdateProgram :exec
update degree_programs set
    url = ?,
    degree_type = ?,
    total_credits = ?,
    requirements = ?,
    gen_ed_requirements = ?,
    scraping_metadata = ?,
    updated_at = ?
where id = ?
`

type UpdateProgramParams struct {
	Url               string
	DegreeType        string
	TotalCredits      float64
	Requirements      string
	GenEdRequirements string
	ScrapingMetadata  string
	UpdatedAt         int64
	ID                int64
}

func (q *Queries) UpdateProgram(ctx context.Context, arg UpdateProgramParams) error {
	_, err := q.db.ExecContext(ctx, updateProgram,
		arg.Url,
		arg.DegreeType,
		arg.TotalCredits,
		arg.Requirements,
		arg.GenEdRequirements,
		arg.ScrapingMetadata,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const deleteProgramFootnotes = `-- name: DeleteProgramFootnotes :exec
delete from program_footnotes where program_id = ?
`

func (q *Queries) DeleteProgramFootnotes(ctx context.Context, programID int64) error {
	_, err := q.db.ExecContext(ctx, deleteProgramFootnotes, programID)
	return err
}

const createProgramFootnote = `-- name: CreateProgramFootnote :exec
insert into program_footnotes(program_id, number, content, rule_type, mapped_courses)
values (?, ?, ?, ?, ?)
`

type CreateProgramFootnoteParams struct {
	ProgramID     int64
	Number        int64
	Content       string
	RuleType      string
	MappedCourses string
}

func (q *Queries) CreateProgramFootnote(ctx context.Context, arg CreateProgramFootnoteParams) error {
	_, err := q.db.ExecContext(ctx, createProgramFootnote,
		arg.ProgramID,
		arg.Number,
		arg.Content,
		arg.RuleType,
		arg.MappedCourses,
	)
	return err
}

const getProgramFootnotes = `-- name: GetProgramFootnotes :many
select id, program_id, number, content, rule_type, mapped_courses from program_footnotes
where program_id = ?
order by number
`

func (q *Queries) GetProgramFootnotes(ctx context.Context, programID int64) ([]ProgramFootnote, error) {
	rows, err := q.db.QueryContext(ctx, getProgramFootnotes, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProgramFootnote
	for rows.Next() {
		var i ProgramFootnote
		if err := rows.Scan(
			&i.ID,
			&i.ProgramID,
			&i.Number,
			&i.Content,
			&i.RuleType,
			&i.MappedCourses,
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
