package db

import (
	"context"
)

const upsertCourse = `-- name: UpsertCourse :exec
insert into courses(code, title, credits) values (?, ?, ?)
on conflict(code) do update set
    title = excluded.title,
    credits = excluded.credits
`

type UpsertCourseParams struct {
	Code    string
	Title   string
	Credits float64
}

func (q *Queries) UpsertCourse(ctx context.Context, arg UpsertCourseParams) error {
	_, err := q.db.ExecContext(ctx, upsertCourse, arg.Code, arg.Title, arg.Credits)
	return err
}

const listCourses = `-- name: ListCourses :many
select id, code, title, credits from courses
order by code
`

func (q *Queries) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := q.db.QueryContext(ctx, listCourses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Course
	for rows.Next() {
		var i Course
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.Title,
			&i.Credits,
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

const countCourses = `-- name: CountCourses :one
select count(*) from courses
`

func (q *Queries) CountCourses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCourses)
	var count int64
	err := row.Scan(&count)
	return count, err
}
