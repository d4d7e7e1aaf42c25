package school

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
)

var (
	// errors
	ErrLevelNotFound   = core.NewNotFoundError("level not found")
	ErrGradeNotFound   = core.NewNotFoundError("grade not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrLevelInUse      = core.NewConflictError("level still has grades")
	ErrGradeInUse      = core.NewConflictError("grade still has students")

	errUnknownLevel   = errors.New("level not found")
	errUnknownGrade   = errors.New("grade not found")
	errUnknownTeacher = errors.New("teacher not found")
)

type (
	Repository interface {
		CreateLevel(ctx context.Context, lvl Level) (Level, error)
		QueryLevels(ctx context.Context, ordering ...core.DBOrdering) ([]Level, error)
		GetLevel(ctx context.Context, id int) (Level, error)
		UpdateLevel(ctx context.Context, lvl Level) (Level, error)
		// DeleteLevel fails with ErrLevelInUse while any grade references the level.
		DeleteLevel(ctx context.Context, id int) error

		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter GradeFilter, ordering ...core.DBOrdering) ([]Grade, error)
		GetGrade(ctx context.Context, id int) (Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
		// DeleteGrade fails with ErrGradeInUse while any student belongs to the grade.
		DeleteGrade(ctx context.Context, id int) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter, ordering ...core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudent also deletes the student's attendance, uniform & report rows.
		DeleteStudent(ctx context.Context, id int) error
	}

	UserGetter interface {
		GetUser(ctx context.Context, filter user.GetFilter) (user.User, error)
	}

	Service struct {
		repo       Repository
		users      UserGetter
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, users UserGetter, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		validate:   validate,
		translator: translator,
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

func fieldError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *Service) checkLevel(ctx context.Context, id int) error {
	if _, err := svc.repo.GetLevel(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return fieldError("levelId", errUnknownLevel)
		}
		return err
	}
	return nil
}

func (svc *Service) checkGrade(ctx context.Context, id int) error {
	if _, err := svc.repo.GetGrade(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return fieldError("gradeId", errUnknownGrade)
		}
		return err
	}
	return nil
}

// checkTeacher ensures the optional teacher exists and has the teacher role.
func (svc *Service) checkTeacher(ctx context.Context, id *int) error {
	if id == nil {
		return nil
	}
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: *id})
	if err != nil {
		if core.IsNotFound(err) {
			return fieldError("teacherId", errUnknownTeacher)
		}
		return err
	}
	if !usr.IsTeacher() {
		return fieldError("teacherId", errUnknownTeacher)
	}
	return nil
}

// Levels

func (svc *Service) CreateLevel(ctx context.Context, nl NewLevel) (Level, error) {
	nl.clean()
	if err := svc.validateStruct(nl); err != nil {
		return Level{}, err
	}
	return svc.repo.CreateLevel(ctx, Level{Name: nl.Name, Description: core.StringPtr(nl.Description)})
}

func (svc *Service) QueryLevels(ctx context.Context, ordering ...core.DBOrdering) ([]Level, error) {
	return svc.repo.QueryLevels(ctx, ordering...)
}

func (svc *Service) GetLevel(ctx context.Context, id int) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

func (svc *Service) UpdateLevel(ctx context.Context, id int, ul UpdateLevel) (Level, error) {
	ul.clean()
	if err := svc.validateStruct(ul); err != nil {
		return Level{}, err
	}
	return svc.repo.UpdateLevel(ctx, Level{ID: id, Name: ul.Name, Description: core.StringPtr(ul.Description)})
}

func (svc *Service) DeleteLevel(ctx context.Context, id int) error {
	return svc.repo.DeleteLevel(ctx, id)
}

// Grades

func (svc *Service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	ng.clean()
	if err := svc.validateStruct(ng); err != nil {
		return Grade{}, err
	}
	if err := svc.checkLevel(ctx, ng.LevelID); err != nil {
		return Grade{}, err
	}
	if err := svc.checkTeacher(ctx, ng.TeacherID); err != nil {
		return Grade{}, err
	}
	return svc.repo.CreateGrade(ctx, Grade{Name: ng.Name, LevelID: ng.LevelID, TeacherID: ng.TeacherID})
}

func (svc *Service) QueryGrades(ctx context.Context, filter GradeFilter, ordering ...core.DBOrdering) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter, ordering...)
}

func (svc *Service) GetGrade(ctx context.Context, id int) (Grade, error) {
	return svc.repo.GetGrade(ctx, id)
}

func (svc *Service) UpdateGrade(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	ug.clean()
	if err := svc.validateStruct(ug); err != nil {
		return Grade{}, err
	}
	if err := svc.checkLevel(ctx, ug.LevelID); err != nil {
		return Grade{}, err
	}
	if err := svc.checkTeacher(ctx, ug.TeacherID); err != nil {
		return Grade{}, err
	}
	return svc.repo.UpdateGrade(ctx, Grade{ID: id, Name: ug.Name, LevelID: ug.LevelID, TeacherID: ug.TeacherID})
}

func (svc *Service) DeleteGrade(ctx context.Context, id int) error {
	return svc.repo.DeleteGrade(ctx, id)
}

// TeacherGrades returns the grades taught by teacherID.
func (svc *Service) TeacherGrades(ctx context.Context, teacherID int) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, GradeFilter{TeacherID: teacherID}, core.DBOrdering{Field: "name", Ascending: true})
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	ns.clean()
	if err := svc.validateStruct(ns); err != nil {
		return Student{}, err
	}
	if err := svc.checkGrade(ctx, ns.GradeID); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{Name: ns.Name, Email: core.StringPtr(ns.Email), GradeID: ns.GradeID})
}

func (svc *Service) QueryStudents(ctx context.Context, filter StudentFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering...)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// StudentByEmail returns the student record linked to a student account.
func (svc *Service) StudentByEmail(ctx context.Context, email string) (Student, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return Student{}, ErrStudentNotFound
	}
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{Email: email}, core.DBOrdering{Field: "id", Ascending: true})
	if err != nil {
		return Student{}, err
	}
	if len(students) == 0 {
		return Student{}, ErrStudentNotFound
	}
	return students[0], nil
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	us.clean()
	if err := svc.validateStruct(us); err != nil {
		return Student{}, err
	}
	if err := svc.checkGrade(ctx, us.GradeID); err != nil {
		return Student{}, err
	}
	return svc.repo.UpdateStudent(ctx, Student{ID: id, Name: us.Name, Email: core.StringPtr(us.Email), GradeID: us.GradeID})
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}
