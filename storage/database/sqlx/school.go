package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/school"
)

var (
	levelColumns   = []string{"id", "name", "description"}
	gradeColumns   = []string{"id", "name", "level_id", "teacher_id"}
	studentColumns = []string{"id", "name", "email", "grade_id"}

	levelOrdering   = []string{"name"}
	gradeOrdering   = []string{"name", "level_id", "teacher_id"}
	studentOrdering = []string{"name", "grade_id"}
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

// Levels

func (repo *schoolRepository) CreateLevel(ctx context.Context, lvl school.Level) (school.Level, error) {
	b := psql.Insert("levels").
		Columns("name", "description").
		Values(lvl.Name, lvl.Description).
		Suffix("RETURNING id")
	if err := getContext(ctx, repo.db, &lvl.ID, b, nil, "inserting level"); err != nil {
		return school.Level{}, err
	}
	return lvl, nil
}

func (repo *schoolRepository) QueryLevels(ctx context.Context, ordering ...core.DBOrdering) ([]school.Level, error) {
	b := psql.Select(levelColumns...).From("levels").OrderBy(orderBy(ordering, levelOrdering)...)
	levels := make([]school.Level, 0)
	if err := selectContext(ctx, repo.db, &levels, b, nil, "querying levels"); err != nil {
		return nil, err
	}
	return levels, nil
}

func (repo *schoolRepository) GetLevel(ctx context.Context, id int) (school.Level, error) {
	b := psql.Select(levelColumns...).From("levels").Where(sq.Eq{"id": id})
	var lvl school.Level
	if err := getContext(ctx, repo.db, &lvl, b, school.ErrLevelNotFound, "getting level"); err != nil {
		return school.Level{}, err
	}
	return lvl, nil
}

func (repo *schoolRepository) UpdateLevel(ctx context.Context, lvl school.Level) (school.Level, error) {
	b := psql.Update("levels").
		Set("name", lvl.Name).
		Set("description", lvl.Description).
		Where(sq.Eq{"id": lvl.ID}).
		Suffix("RETURNING " + joinColumns(levelColumns))
	var updated school.Level
	if err := getContext(ctx, repo.db, &updated, b, school.ErrLevelNotFound, "updating level"); err != nil {
		return school.Level{}, err
	}
	return updated, nil
}

func (repo *schoolRepository) DeleteLevel(ctx context.Context, id int) error {
	err := execContext(ctx, repo.db, psql.Delete("levels").Where(sq.Eq{"id": id}), school.ErrLevelNotFound, "deleting level")
	if core.IsConflict(err) {
		return school.ErrLevelInUse
	}
	return err
}

// Grades

func (repo *schoolRepository) CreateGrade(ctx context.Context, grd school.Grade) (school.Grade, error) {
	b := psql.Insert("grades").
		Columns("name", "level_id", "teacher_id").
		Values(grd.Name, grd.LevelID, grd.TeacherID).
		Suffix("RETURNING id")
	if err := getContext(ctx, repo.db, &grd.ID, b, nil, "inserting grade"); err != nil {
		return school.Grade{}, err
	}
	return grd, nil
}

func (repo *schoolRepository) QueryGrades(ctx context.Context, filter school.GradeFilter, ordering ...core.DBOrdering) ([]school.Grade, error) {
	b := psql.Select(gradeColumns...).From("grades")
	if filter.LevelID != 0 {
		b = b.Where(sq.Eq{"level_id": filter.LevelID})
	}
	if filter.TeacherID != 0 {
		b = b.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	if len(filter.IDs) > 0 {
		b = b.Where(sq.Eq{"id": filter.IDs})
	}
	b = b.OrderBy(orderBy(ordering, gradeOrdering)...)

	grades := make([]school.Grade, 0)
	if err := selectContext(ctx, repo.db, &grades, b, nil, "querying grades"); err != nil {
		return nil, err
	}
	return grades, nil
}

func (repo *schoolRepository) GetGrade(ctx context.Context, id int) (school.Grade, error) {
	b := psql.Select(gradeColumns...).From("grades").Where(sq.Eq{"id": id})
	var grd school.Grade
	if err := getContext(ctx, repo.db, &grd, b, school.ErrGradeNotFound, "getting grade"); err != nil {
		return school.Grade{}, err
	}
	return grd, nil
}

func (repo *schoolRepository) UpdateGrade(ctx context.Context, grd school.Grade) (school.Grade, error) {
	b := psql.Update("grades").
		Set("name", grd.Name).
		Set("level_id", grd.LevelID).
		Set("teacher_id", grd.TeacherID).
		Where(sq.Eq{"id": grd.ID}).
		Suffix("RETURNING " + joinColumns(gradeColumns))
	var updated school.Grade
	if err := getContext(ctx, repo.db, &updated, b, school.ErrGradeNotFound, "updating grade"); err != nil {
		return school.Grade{}, err
	}
	return updated, nil
}

func (repo *schoolRepository) DeleteGrade(ctx context.Context, id int) error {
	err := execContext(ctx, repo.db, psql.Delete("grades").Where(sq.Eq{"id": id}), school.ErrGradeNotFound, "deleting grade")
	if core.IsConflict(err) {
		return school.ErrGradeInUse
	}
	return err
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	b := psql.Insert("students").
		Columns("name", "email", "grade_id").
		Values(std.Name, std.Email, std.GradeID).
		Suffix("RETURNING id")
	if err := getContext(ctx, repo.db, &std.ID, b, nil, "inserting student"); err != nil {
		return school.Student{}, err
	}
	return std, nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error) {
	b := psql.Select(studentColumns...).From("students")
	if filter.GradeID != 0 {
		b = b.Where(sq.Eq{"grade_id": filter.GradeID})
	}
	if len(filter.GradeIDs) > 0 {
		b = b.Where(sq.Eq{"grade_id": filter.GradeIDs})
	}
	if filter.Email != "" {
		b = b.Where(sq.Eq{"email": filter.Email})
	}
	if filter.Search != "" {
		b = b.Where(sq.ILike{"name": "%" + filter.Search + "%"})
	}
	b = b.OrderBy(orderBy(ordering, studentOrdering)...)

	students := make([]school.Student, 0)
	if err := selectContext(ctx, repo.db, &students, b, nil, "querying students"); err != nil {
		return nil, err
	}
	return students, nil
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id int) (school.Student, error) {
	b := psql.Select(studentColumns...).From("students").Where(sq.Eq{"id": id})
	var std school.Student
	if err := getContext(ctx, repo.db, &std, b, school.ErrStudentNotFound, "getting student"); err != nil {
		return school.Student{}, err
	}
	return std, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	b := psql.Update("students").
		Set("name", std.Name).
		Set("email", std.Email).
		Set("grade_id", std.GradeID).
		Where(sq.Eq{"id": std.ID}).
		Suffix("RETURNING " + joinColumns(studentColumns))
	var updated school.Student
	if err := getContext(ctx, repo.db, &updated, b, school.ErrStudentNotFound, "updating student"); err != nil {
		return school.Student{}, err
	}
	return updated, nil
}

// DeleteStudent relies on the ON DELETE CASCADE of the attendance, uniform_compliance & reports tables.
func (repo *schoolRepository) DeleteStudent(ctx context.Context, id int) error {
	return execContext(ctx, repo.db, psql.Delete("students").Where(sq.Eq{"id": id}), school.ErrStudentNotFound, "deleting student")
}
