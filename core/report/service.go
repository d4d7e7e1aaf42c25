package report

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/school"
)

var (
	ErrNotFound = core.NewNotFoundError("report not found")

	nowFunc = time.Now
)

type (
	Repository interface {
		CreateReport(ctx context.Context, rep Report) (Report, error)
		// QueryReports returns the matching reports, newest first unless ordering says otherwise.
		QueryReports(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Report, error)
		GetReport(ctx context.Context, id int) (Report, error)
	}

	SchoolReader interface {
		GetGrade(ctx context.Context, id int) (school.Grade, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
		QueryStudents(ctx context.Context, filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error)
	}

	Service struct {
		repo    Repository
		school  SchoolReader
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, schoolRdr SchoolReader, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		school:  schoolRdr,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Compose resolves the audience, stores the report then emails the guardians.
func (svc *Service) Compose(ctx context.Context, authorID int, nr NewReport) (Report, error) {
	aud := nr.Audience
	var std *school.Student
	switch {
	case aud.StudentID != nil && *aud.StudentID > 0:
		s, err := svc.school.GetStudent(ctx, *aud.StudentID)
		if err != nil {
			return Report{}, err
		}
		std = &s
		aud.GradeID = core.IntPtr(s.GradeID)
		aud.AllStudents = false
	case aud.AllStudents && aud.GradeID != nil && *aud.GradeID > 0:
		if _, err := svc.school.GetGrade(ctx, *aud.GradeID); err != nil {
			return Report{}, err
		}
	}

	rep, err := Compose(authorID, aud, nr.Subject, nr.Body, nr.Type, nowFunc())
	if err != nil {
		return Report{}, err
	}
	rep, err = svc.repo.CreateReport(ctx, rep)
	if err != nil {
		return Report{}, errors.Wrap(err, "creating report")
	}
	rep.Expand()

	svc.notify(ctx, rep, std)
	return rep, nil
}

// notify emails the report to the guardian address of every student in its audience.
// Failures are logged, never returned.
func (svc *Service) notify(ctx context.Context, rep Report, std *school.Student) {
	if svc.mailSvc == nil {
		return
	}

	var students []school.Student
	if std != nil {
		students = []school.Student{*std}
	} else {
		var err error
		students, err = svc.school.QueryStudents(ctx, school.StudentFilter{GradeID: rep.GradeID})
		if err != nil {
			if svc.logger != nil {
				svc.logger.Error("report.notify: querying students", err)
			}
			return
		}
	}

	msgs := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		if s.Email == nil || *s.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: s.Name, Address: *s.Email}},
			Subject:      rep.Subject,
			TemplateName: "report",
			TemplateData: map[string]interface{}{
				"Type":        string(rep.Type),
				"StudentName": s.Name,
				"Subject":     rep.Subject,
				"Body":        rep.Body,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Report, error) {
	reps, err := svc.repo.QueryReports(ctx, filter, core.DBOrdering{Field: "sent_at"}, core.DBOrdering{Field: "id"})
	if err != nil {
		return nil, err
	}
	for i := range reps {
		reps[i].Expand()
	}
	return reps, nil
}

// ForStudent returns the reports addressed to the student or broadcast to its grade.
func (svc *Service) ForStudent(ctx context.Context, std school.Student) ([]Report, error) {
	return svc.Query(ctx, QueryFilter{StudentID: std.ID, GradeID: std.GradeID, Audience: true})
}

func (svc *Service) Get(ctx context.Context, id int) (Report, error) {
	rep, err := svc.repo.GetReport(ctx, id)
	if err != nil {
		return Report{}, err
	}
	rep.Expand()
	return rep, nil
}
