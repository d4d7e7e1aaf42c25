package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

type fakeSchool struct {
	grades   map[int]school.Grade
	students map[int]school.Student
}

func (f fakeSchool) GetGrade(_ context.Context, id int) (school.Grade, error) {
	if g, ok := f.grades[id]; ok {
		return g, nil
	}
	return school.Grade{}, school.ErrGradeNotFound
}

func (f fakeSchool) GetStudent(_ context.Context, id int) (school.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (f fakeSchool) StudentByEmail(_ context.Context, email string) (school.Student, error) {
	for _, s := range f.students {
		if s.Email != nil && *s.Email == email {
			return s, nil
		}
	}
	return school.Student{}, school.ErrStudentNotFound
}

type fakeReports map[int]report.Report

func (f fakeReports) Get(_ context.Context, id int) (report.Report, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return report.Report{}, report.ErrNotFound
}

func newTestGuard() (*Guard, fakeSchool) {
	sch := fakeSchool{
		grades: map[int]school.Grade{
			10: {ID: 10, Name: "A", LevelID: 1, TeacherID: core.IntPtr(2)},
			11: {ID: 11, Name: "B", LevelID: 1},
		},
		students: map[int]school.Student{
			7: {ID: 7, Name: "Ana", Email: core.StringPtr("ana@example.com"), GradeID: 10},
			8: {ID: 8, Name: "Ben", Email: core.StringPtr("ben@example.com"), GradeID: 11},
		},
	}
	reps := fakeReports{
		1: {ID: 1, GradeID: 10}, // broadcast
		2: {ID: 2, GradeID: 11, StudentID: core.IntPtr(8)},
	}
	return NewGuard(sch, reps), sch
}

func TestGuard_Principal(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	p, err := g.Principal(ctx, user.User{ID: 3, Role: user.RoleStudent, Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, core.IntPtr(7), p.StudentID)
	assert.Equal(t, core.IntPtr(10), p.GradeID)

	p, err = g.Principal(ctx, user.User{ID: 4, Role: user.RoleStudent, Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Nil(t, p.StudentID)

	p, err = g.Principal(ctx, user.User{ID: 2, Role: user.RoleTeacher, Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Nil(t, p.StudentID)
}

func TestGuard_Authorize(t *testing.T) {
	g, sch := newTestGuard()
	ctx := context.Background()
	teacher := Principal{Role: user.RoleTeacher, UserID: 2}
	ana := Principal{Role: user.RoleStudent, UserID: 3, StudentID: core.IntPtr(7), GradeID: core.IntPtr(10)}

	tests := []struct {
		name       string
		p          Principal
		act        Action
		kind       Kind
		scope      Scope
		wantDenied bool
		wantNotFnd bool
	}{
		{name: "teacher own grade", p: teacher, act: ActionCreate, kind: KindAttendance, scope: OfGrade(10)},
		{name: "teacher other grade", p: teacher, act: ActionCreate, kind: KindAttendance, scope: OfGrade(11), wantDenied: true},
		{name: "teacher own student", p: teacher, act: ActionUpdate, kind: KindStudent, scope: ByID(7)},
		{name: "teacher unknown grade", p: teacher, act: ActionRead, kind: KindAttendance, scope: OfGrade(99), wantNotFnd: true},
		{name: "student broadcast", p: ana, act: ActionRead, kind: KindReport, scope: ByID(1)},
		{name: "student foreign report", p: ana, act: ActionRead, kind: KindReport, scope: ByID(2), wantDenied: true},
		{name: "student unknown report", p: ana, act: ActionRead, kind: KindReport, scope: ByID(5), wantNotFnd: true},
		{name: "admin skips lookups", p: Principal{Role: user.RoleAdmin, UserID: 1}, act: ActionDelete, kind: KindGrade, scope: ByID(99)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(ctx, tt.p, tt.act, tt.kind, tt.scope)
			switch {
			case tt.wantDenied:
				assert.True(t, IsDenied(err), "got %v", err)
			case tt.wantNotFnd:
				assert.True(t, core.IsNotFound(err), "got %v", err)
				assert.False(t, g.Allowed(ctx, tt.p, tt.act, tt.kind, tt.scope))
			default:
				assert.NoError(t, err)
			}
		})
	}

	// ownership is resolved on every decision
	grd := sch.grades[11]
	grd.TeacherID = core.IntPtr(2)
	sch.grades[11] = grd
	assert.True(t, g.Allowed(ctx, teacher, ActionCreate, KindAttendance, OfGrade(11)))
}
