package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

// ErrDenied is the cause of every error returned by Guard.Authorize on a deny decision.
var ErrDenied = errors.New("you do not have permission to perform this action")

func IsDenied(err error) bool {
	return errors.Cause(err) == ErrDenied
}

type (
	SchoolReader interface {
		GetGrade(ctx context.Context, id int) (school.Grade, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
		StudentByEmail(ctx context.Context, email string) (school.Student, error)
	}

	ReportGetter interface {
		Get(ctx context.Context, id int) (report.Report, error)
	}
)

// Resolver looks up the ownership facts of a resource.
type Resolver struct {
	school  SchoolReader
	reports ReportGetter
}

func NewResolver(schoolRdr SchoolReader, reports ReportGetter) *Resolver {
	return &Resolver{school: schoolRdr, reports: reports}
}

func (r *Resolver) gradeOwner(ctx context.Context, gradeID int) (Owner, error) {
	grd, err := r.school.GetGrade(ctx, gradeID)
	if err != nil {
		return Owner{}, err
	}
	return Owner{GradeID: core.IntPtr(grd.ID), GradeTeacherID: grd.TeacherID}, nil
}

func (r *Resolver) studentOwner(ctx context.Context, studentID int) (Owner, error) {
	std, err := r.school.GetStudent(ctx, studentID)
	if err != nil {
		return Owner{}, err
	}
	owner, err := r.gradeOwner(ctx, std.GradeID)
	if err != nil {
		return Owner{}, errors.Wrap(err, "resolving student grade")
	}
	owner.StudentID = core.IntPtr(std.ID)
	return owner, nil
}

// Resolve returns the resource of kind in scope with its current ownership facts.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, scope Scope) (Resource, error) {
	res := Resource{Kind: kind, Scope: scope}

	var (
		owner Owner
		err   error
	)
	switch scope.Type {
	case ScopeGrade:
		owner, err = r.gradeOwner(ctx, scope.ID)
	case ScopeStudent:
		owner, err = r.studentOwner(ctx, scope.ID)
	case ScopeID:
		switch kind {
		case KindUser:
			owner = Owner{UserID: core.IntPtr(scope.ID)}
		case KindGrade:
			owner, err = r.gradeOwner(ctx, scope.ID)
		case KindStudent:
			owner, err = r.studentOwner(ctx, scope.ID)
		case KindReport:
			var rep report.Report
			if rep, err = r.reports.Get(ctx, scope.ID); err == nil {
				owner, err = r.gradeOwner(ctx, rep.GradeID)
				owner.StudentID = rep.StudentID
			}
		}
	}
	if err != nil {
		return Resource{}, err
	}
	res.Owner = owner
	return res, nil
}

// Guard combines the Resolver & Evaluate.
type Guard struct {
	resolver *Resolver
	school   SchoolReader
}

func NewGuard(schoolRdr SchoolReader, reports ReportGetter) *Guard {
	return &Guard{resolver: NewResolver(schoolRdr, reports), school: schoolRdr}
}

// Principal builds the principal of an authenticated user.
// A student account is linked to the student row sharing its email.
func (g *Guard) Principal(ctx context.Context, usr user.User) (Principal, error) {
	p := Principal{Role: usr.Role, UserID: usr.ID}
	if usr.IsStudent() {
		std, err := g.school.StudentByEmail(ctx, usr.Email)
		switch {
		case core.IsNotFound(err):
			// unlinked account: reads nothing
		case err != nil:
			return Principal{}, errors.Wrap(err, "linking student account")
		default:
			p.StudentID = core.IntPtr(std.ID)
			p.GradeID = core.IntPtr(std.GradeID)
		}
	}
	return p, nil
}

// Decide resolves the resource & evaluates the policy.
func (g *Guard) Decide(ctx context.Context, p Principal, act Action, kind Kind, scope Scope) (Decision, error) {
	if p.Role == user.RoleAdmin || p.IsAnonymous() {
		return Evaluate(p, act, Resource{Kind: kind, Scope: scope}), nil
	}
	res, err := g.resolver.Resolve(ctx, kind, scope)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(p, act, res), nil
}

// Authorize returns an ErrDenied error if p may not perform act.
// Lookup errors (e.g. an unknown grade) are returned as is.
func (g *Guard) Authorize(ctx context.Context, p Principal, act Action, kind Kind, scope Scope) error {
	dec, err := g.Decide(ctx, p, act, kind, scope)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return errors.Wrap(ErrDenied, dec.Reason)
	}
	return nil
}

// Allowed is Authorize for list filtering: lookup errors count as a deny.
func (g *Guard) Allowed(ctx context.Context, p Principal, act Action, kind Kind, scope Scope) bool {
	dec, err := g.Decide(ctx, p, act, kind, scope)
	return err == nil && dec.Allowed
}
