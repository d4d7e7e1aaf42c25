package projection

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/school"
)

type (
	AttendanceQuerier interface {
		Query(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error)
		QueryUniforms(ctx context.Context, filter attendance.Filter) ([]attendance.UniformRecord, error)
	}

	SchoolQuerier interface {
		QueryLevels(ctx context.Context, ordering ...core.DBOrdering) ([]school.Level, error)
		QueryGrades(ctx context.Context, filter school.GradeFilter, ordering ...core.DBOrdering) ([]school.Grade, error)
		QueryStudents(ctx context.Context, filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error)
		GetGrade(ctx context.Context, id int) (school.Grade, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
	}

	// Service loads the rows through the record store & runs the projections.
	// The date window is pushed down to the store.
	Service struct {
		attendance AttendanceQuerier
		school     SchoolQuerier
	}
)

type (
	LevelsView struct {
		Series       []Series       `json:"series"`
		Average      []AveragePoint `json:"average"`
		Distribution []Slice        `json:"distribution"`
	}

	GradesView struct {
		Series       []Series       `json:"series"`
		Average      []AveragePoint `json:"average"`
		Distribution []Slice        `json:"distribution"`
	}
)

var nameOrdering = core.DBOrdering{Field: "name", Ascending: true}

func NewService(att AttendanceQuerier, schoolQrr SchoolQuerier) *Service {
	return &Service{attendance: att, school: schoolQrr}
}

func (w Window) filter() attendance.Filter {
	return attendance.Filter{From: w.From, To: w.To}
}

func (svc *Service) directory(ctx context.Context, gradeFilter school.GradeFilter, studentFilter school.StudentFilter) (Directory, []school.Grade, error) {
	grades, err := svc.school.QueryGrades(ctx, gradeFilter, nameOrdering)
	if err != nil {
		return Directory{}, nil, errors.Wrap(err, "querying grades")
	}
	students, err := svc.school.QueryStudents(ctx, studentFilter)
	if err != nil {
		return Directory{}, nil, errors.Wrap(err, "querying students")
	}
	return NewDirectory(students, grades), grades, nil
}

// Levels tallies the whole school per level & month.
func (svc *Service) Levels(ctx context.Context, w Window) (LevelsView, error) {
	levels, err := svc.school.QueryLevels(ctx, nameOrdering)
	if err != nil {
		return LevelsView{}, errors.Wrap(err, "querying levels")
	}
	dir, _, err := svc.directory(ctx, school.GradeFilter{}, school.StudentFilter{})
	if err != nil {
		return LevelsView{}, err
	}
	records, err := svc.attendance.Query(ctx, w.filter())
	if err != nil {
		return LevelsView{}, errors.Wrap(err, "querying attendance")
	}

	series := ByLevel(records, dir, levels)
	return LevelsView{
		Series:       series,
		Average:      AverageAcross(series),
		Distribution: Distribution(SeriesTally(series)),
	}, nil
}

// Grades tallies the given grades per week of the month.
func (svc *Service) Grades(ctx context.Context, gradeIDs []int, w Window) (GradesView, error) {
	if len(gradeIDs) == 0 {
		return GradesView{Series: []Series{}, Average: []AveragePoint{}, Distribution: []Slice{}}, nil
	}
	dir, grades, err := svc.directory(ctx, school.GradeFilter{IDs: gradeIDs}, school.StudentFilter{GradeIDs: gradeIDs})
	if err != nil {
		return GradesView{}, err
	}
	filter := w.filter()
	filter.GradeIDs = gradeIDs
	records, err := svc.attendance.Query(ctx, filter)
	if err != nil {
		return GradesView{}, errors.Wrap(err, "querying attendance")
	}

	series := ByGrade(records, dir, grades)
	return GradesView{
		Series:       series,
		Average:      AverageAcross(series),
		Distribution: Distribution(SeriesTally(series)),
	}, nil
}

func (svc *Service) Student(ctx context.Context, studentID int, w Window) (StudentSummary, error) {
	std, err := svc.school.GetStudent(ctx, studentID)
	if err != nil {
		return StudentSummary{}, err
	}
	filter := w.filter()
	filter.StudentID = studentID
	records, err := svc.attendance.Query(ctx, filter)
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying attendance")
	}
	return ByStudent(records, NewDirectory([]school.Student{std}, nil), studentID), nil
}

// Distribution returns the status shares of the rows matching filter.
func (svc *Service) Distribution(ctx context.Context, filter attendance.Filter) ([]Slice, error) {
	records, err := svc.attendance.Query(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return Distribution(TallyOf(records)), nil
}

// Compliance scores the weeks of a month on whether the teacher took attendance.
func (svc *Service) Compliance(ctx context.Context, teacherID, year int, month time.Month) ([]CompliancePoint, error) {
	first := core.NewDate(year, month, 1)
	last := core.DateOf(first.AddDate(0, 1, -1))

	grades, err := svc.school.QueryGrades(ctx, school.GradeFilter{TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	if len(grades) == 0 {
		return TeacherCompliance(nil, Directory{}, teacherID, year, month), nil
	}
	gradeIDs := make([]int, 0, len(grades))
	for _, g := range grades {
		gradeIDs = append(gradeIDs, g.ID)
	}
	students, err := svc.school.QueryStudents(ctx, school.StudentFilter{GradeIDs: gradeIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	records, err := svc.attendance.Query(ctx, attendance.Filter{GradeIDs: gradeIDs, From: first, To: last})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return TeacherCompliance(records, NewDirectory(students, grades), teacherID, year, month), nil
}

// Uniforms counts the uniform checks of a grade per item.
func (svc *Service) Uniforms(ctx context.Context, gradeID int, w Window) ([]ItemCompliance, error) {
	grd, err := svc.school.GetGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	students, err := svc.school.QueryStudents(ctx, school.StudentFilter{GradeID: gradeID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	filter := w.filter()
	filter.GradeID = gradeID
	records, err := svc.attendance.QueryUniforms(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying uniforms")
	}
	return UniformByGrade(records, NewDirectory(students, []school.Grade{grd}), gradeID), nil
}
