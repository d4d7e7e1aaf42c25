package attendance

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/school"
)

var (
	attStatusTag    = "attstatus"
	attStatusText   = "status must be one of present, absent or late"
	uniformItemTag  = "uniformitem"
	uniformItemText = "item must be one of shoes, shirt, pants, sweater, haircut or other"

	errDateRequired = errors.New("this field is required")
)

type (
	Repository interface {
		// UpsertAttendance inserts or replaces the status of every (StudentID, Date) pair, all or nothing.
		UpsertAttendance(ctx context.Context, records []Record) ([]Record, error)
		QueryAttendance(ctx context.Context, filter Filter, ordering ...core.DBOrdering) ([]Record, error)
		// UpsertUniforms inserts or replaces every (StudentID, Date, Item) triple, all or nothing.
		UpsertUniforms(ctx context.Context, records []UniformRecord) ([]UniformRecord, error)
		QueryUniforms(ctx context.Context, filter Filter, ordering ...core.DBOrdering) ([]UniformRecord, error)
	}

	StudentQuerier interface {
		QueryStudents(ctx context.Context, filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error)
	}

	Service struct {
		repo       Repository
		students   StudentQuerier
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, students StudentQuerier, validate *validator.Validate, translator ut.Translator) *Service {
	statuses := make([]string, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		statuses = append(statuses, string(s))
	}
	items := make([]string, 0, len(AllItems))
	for _, i := range AllItems {
		items = append(items, string(i))
	}
	core.RegisterEnumValidation(validate, translator, attStatusTag, attStatusText, statuses...)
	core.RegisterEnumValidation(validate, translator, uniformItemTag, uniformItemText, items...)

	return &Service{
		repo:       repo,
		students:   students,
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

// checkMembership ensures every student ID belongs to the grade.
func (svc *Service) checkMembership(ctx context.Context, gradeID int, studentIDs []int) error {
	students, err := svc.students.QueryStudents(ctx, school.StudentFilter{GradeID: gradeID})
	if err != nil {
		return errors.Wrap(err, "querying grade students")
	}
	members := make(map[int]struct{}, len(students))
	for _, std := range students {
		members[std.ID] = struct{}{}
	}

	var flds []core.FieldError
	for _, id := range studentIDs {
		if _, ok := members[id]; !ok {
			flds = append(flds, core.FieldError{
				Field: "students",
				Error: fmt.Sprintf("student %d does not belong to grade %d", id, gradeID),
			})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Submit records the attendance of a grade for a day.
// A student listed more than once keeps its last status. Existing records of the day are replaced.
func (svc *Service) Submit(ctx context.Context, ba BulkAttendance) ([]Record, error) {
	if err := svc.validateStruct(ba); err != nil {
		return nil, err
	}
	if ba.Date.IsZero() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errDateRequired.Error()})
	}

	// last one wins
	order := make([]int, 0, len(ba.Students))
	statuses := make(map[int]Status, len(ba.Students))
	for _, ss := range ba.Students {
		if _, ok := statuses[ss.ID]; !ok {
			order = append(order, ss.ID)
		}
		statuses[ss.ID] = ss.Status
	}
	if err := svc.checkMembership(ctx, ba.GradeID, order); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(order))
	for _, id := range order {
		records = append(records, Record{StudentID: id, Date: ba.Date, Status: statuses[id]})
	}
	return svc.repo.UpsertAttendance(ctx, records)
}

// Query returns the attendance records matching filter, by date then student.
func (svc *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return svc.repo.QueryAttendance(ctx, filter,
		core.DBOrdering{Field: "date", Ascending: true},
		core.DBOrdering{Field: "student_id", Ascending: true})
}

// SubmitUniforms records the uniform check of a grade for a day.
// A (student, item) pair listed more than once keeps its last value.
func (svc *Service) SubmitUniforms(ctx context.Context, bu BulkUniform) ([]UniformRecord, error) {
	if err := svc.validateStruct(bu); err != nil {
		return nil, err
	}
	if bu.Date.IsZero() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errDateRequired.Error()})
	}

	type key struct {
		studentID int
		item      Item
	}
	order := make([]key, 0, len(bu.Checks))
	checks := make(map[key]bool, len(bu.Checks))
	studentIDs := make([]int, 0, len(bu.Checks))
	seen := make(map[int]struct{}, len(bu.Checks))
	for _, chk := range bu.Checks {
		k := key{chk.StudentID, chk.Item}
		if _, ok := checks[k]; !ok {
			order = append(order, k)
		}
		checks[k] = chk.Compliant
		if _, ok := seen[chk.StudentID]; !ok {
			seen[chk.StudentID] = struct{}{}
			studentIDs = append(studentIDs, chk.StudentID)
		}
	}
	if err := svc.checkMembership(ctx, bu.GradeID, studentIDs); err != nil {
		return nil, err
	}

	records := make([]UniformRecord, 0, len(order))
	for _, k := range order {
		records = append(records, UniformRecord{StudentID: k.studentID, Date: bu.Date, Item: k.item, Compliant: checks[k]})
	}
	return svc.repo.UpsertUniforms(ctx, records)
}

func (svc *Service) QueryUniforms(ctx context.Context, filter Filter) ([]UniformRecord, error) {
	return svc.repo.QueryUniforms(ctx, filter,
		core.DBOrdering{Field: "date", Ascending: true},
		core.DBOrdering{Field: "student_id", Ascending: true})
}
