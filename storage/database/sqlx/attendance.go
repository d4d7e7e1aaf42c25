package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
)

var (
	attendanceColumns = []string{"a.id", "a.student_id", "a.date", "a.status"}
	uniformColumns    = []string{"u.id", "u.student_id", "u.date", "u.item", "u.compliant"}

	attendanceOrdering = []string{"date", "student_id", "status"}
	uniformOrdering    = []string{"date", "student_id", "item"}
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// filterRecords applies filter on a query over the table aliased as alias, joined with students as s.
func filterRecords(b sq.SelectBuilder, alias string, filter attendance.Filter) sq.SelectBuilder {
	col := func(name string) string { return alias + "." + name }

	if filter.GradeID != 0 || len(filter.GradeIDs) > 0 {
		b = b.Join("students s ON s.id = " + col("student_id"))
		if filter.GradeID != 0 {
			b = b.Where(sq.Eq{"s.grade_id": filter.GradeID})
		}
		if len(filter.GradeIDs) > 0 {
			b = b.Where(sq.Eq{"s.grade_id": filter.GradeIDs})
		}
	}
	if filter.StudentID != 0 {
		b = b.Where(sq.Eq{col("student_id"): filter.StudentID})
	}
	if len(filter.StudentIDs) > 0 {
		b = b.Where(sq.Eq{col("student_id"): filter.StudentIDs})
	}
	if !filter.Date.IsZero() {
		b = b.Where(sq.Eq{col("date"): filter.Date})
	}
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{col("date"): filter.From})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{col("date"): filter.To})
	}
	return b
}

func prefixed(alias string, clauses []string) []string {
	res := make([]string, 0, len(clauses))
	for _, c := range clauses {
		res = append(res, alias+"."+c)
	}
	return res
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, records []attendance.Record) ([]attendance.Record, error) {
	res := make([]attendance.Record, 0, len(records))
	if len(records) == 0 {
		return res, nil
	}

	b := psql.Insert("attendance").Columns("student_id", "date", "status")
	for _, rec := range records {
		b = b.Values(rec.StudentID, rec.Date, rec.Status)
	}
	b = b.Suffix("ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status RETURNING id, student_id, date, status")

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return selectContext(ctx, tx, &res, b, nil, "upserting attendance")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter, ordering ...core.DBOrdering) ([]attendance.Record, error) {
	b := filterRecords(psql.Select(attendanceColumns...).From("attendance a"), "a", filter).
		OrderBy(prefixed("a", orderBy(ordering, attendanceOrdering, "date ASC"))...)

	records := make([]attendance.Record, 0)
	if err := selectContext(ctx, repo.db, &records, b, nil, "querying attendance"); err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *attendanceRepository) UpsertUniforms(ctx context.Context, records []attendance.UniformRecord) ([]attendance.UniformRecord, error) {
	res := make([]attendance.UniformRecord, 0, len(records))
	if len(records) == 0 {
		return res, nil
	}

	b := psql.Insert("uniform_compliance").Columns("student_id", "date", "item", "compliant")
	for _, rec := range records {
		b = b.Values(rec.StudentID, rec.Date, rec.Item, rec.Compliant)
	}
	b = b.Suffix("ON CONFLICT (student_id, date, item) DO UPDATE SET compliant = EXCLUDED.compliant RETURNING id, student_id, date, item, compliant")

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return selectContext(ctx, tx, &res, b, nil, "upserting uniforms")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (repo *attendanceRepository) QueryUniforms(ctx context.Context, filter attendance.Filter, ordering ...core.DBOrdering) ([]attendance.UniformRecord, error) {
	b := filterRecords(psql.Select(uniformColumns...).From("uniform_compliance u"), "u", filter).
		OrderBy(prefixed("u", orderBy(ordering, uniformOrdering, "date ASC"))...)

	records := make([]attendance.UniformRecord, 0)
	if err := selectContext(ctx, repo.db, &records, b, nil, "querying uniforms"); err != nil {
		return nil, err
	}
	return records, nil
}
