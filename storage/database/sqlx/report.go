package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/report"
)

var (
	reportColumns  = []string{"id", "student_id", "grade_id", "type", "report_text", "sent_at", "author_id"}
	reportOrdering = []string{"sent_at", "type", "grade_id"}
)

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(ctx context.Context, rep report.Report) (report.Report, error) {
	b := psql.Insert("reports").
		Columns("student_id", "grade_id", "type", "report_text", "sent_at", "author_id").
		Values(rep.StudentID, rep.GradeID, rep.Type, rep.Text, rep.SentAt.UTC(), rep.AuthorID).
		Suffix("RETURNING id")
	if err := getContext(ctx, repo.db, &rep.ID, b, nil, "inserting report"); err != nil {
		return report.Report{}, err
	}
	rep.Subject, rep.Body = "", ""
	return rep, nil
}

func (repo *reportRepository) QueryReports(ctx context.Context, filter report.QueryFilter, ordering ...core.DBOrdering) ([]report.Report, error) {
	b := psql.Select(reportColumns...).From("reports")
	if filter.Audience {
		// own rows, or broadcasts to the grade
		b = b.Where(sq.Or{
			sq.Eq{"student_id": filter.StudentID},
			sq.And{sq.Eq{"student_id": nil}, sq.Eq{"grade_id": filter.GradeID}},
		})
	} else {
		if filter.StudentID != 0 {
			b = b.Where(sq.Eq{"student_id": filter.StudentID})
		}
		if filter.GradeID != 0 {
			b = b.Where(sq.Eq{"grade_id": filter.GradeID})
		}
		if len(filter.GradeIDs) > 0 {
			b = b.Where(sq.Eq{"grade_id": filter.GradeIDs})
		}
	}
	b = b.OrderBy(orderBy(ordering, reportOrdering, "sent_at DESC")...)

	reps := make([]report.Report, 0)
	if err := selectContext(ctx, repo.db, &reps, b, nil, "querying reports"); err != nil {
		return nil, err
	}
	return reps, nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id int) (report.Report, error) {
	b := psql.Select(reportColumns...).From("reports").Where(sq.Eq{"id": id})
	var rep report.Report
	if err := getContext(ctx, repo.db, &rep, b, report.ErrNotFound, "getting report"); err != nil {
		return report.Report{}, err
	}
	return rep, nil
}
