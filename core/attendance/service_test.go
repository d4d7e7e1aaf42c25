package attendance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/storage/database/inmem"
	testutil "github.com/trezcool/asistencia/tests"
)

type fixture struct {
	svc        *attendance.Service
	repo       attendance.Repository
	grade      school.Grade
	otherGrade school.Grade
	ana, ben   school.Student
	cleo       school.Student
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)
	validate, translator := core.NewValidator()

	lvl := testutil.CreateLevel(t, schoolRepo, "Primary")
	grd := testutil.CreateGrade(t, schoolRepo, "1A", lvl.ID, nil)
	other := testutil.CreateGrade(t, schoolRepo, "1B", lvl.ID, nil)
	return fixture{
		svc:        attendance.NewService(attRepo, schoolRepo, validate, translator),
		repo:       attRepo,
		grade:      grd,
		otherGrade: other,
		ana:        testutil.CreateStudent(t, schoolRepo, "Ana", "", grd.ID),
		ben:        testutil.CreateStudent(t, schoolRepo, "Ben", "", grd.ID),
		cleo:       testutil.CreateStudent(t, schoolRepo, "Cleo", "", other.ID),
	}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := testutil.Date(t, "2025-03-03")

	tests := []struct {
		name        string
		ba          attendance.BulkAttendance
		wantInvalid bool
	}{
		{
			name:        "missing date",
			ba:          attendance.BulkAttendance{GradeID: f.grade.ID, Students: []attendance.StudentStatus{{ID: f.ana.ID, Status: attendance.StatusPresent}}},
			wantInvalid: true,
		},
		{
			name:        "no students",
			ba:          attendance.BulkAttendance{GradeID: f.grade.ID, Date: day},
			wantInvalid: true,
		},
		{
			name:        "invalid status",
			ba:          attendance.BulkAttendance{GradeID: f.grade.ID, Date: day, Students: []attendance.StudentStatus{{ID: f.ana.ID, Status: "sick"}}},
			wantInvalid: true,
		},
		{
			name:        "student of another grade",
			ba:          attendance.BulkAttendance{GradeID: f.grade.ID, Date: day, Students: []attendance.StudentStatus{{ID: f.cleo.ID, Status: attendance.StatusPresent}}},
			wantInvalid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tt.ba)
			assert.True(t, core.IsValidation(err), "got %v", err)
		})
	}

	// nothing was written by the rejected submissions
	recs, err := f.svc.Query(ctx, attendance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestService_Submit_lastOneWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := testutil.Date(t, "2025-03-03")

	recs, err := f.svc.Submit(ctx, attendance.BulkAttendance{
		GradeID: f.grade.ID,
		Date:    day,
		Students: []attendance.StudentStatus{
			{ID: f.ana.ID, Status: attendance.StatusPresent},
			{ID: f.ben.ID, Status: attendance.StatusLate},
			{ID: f.ana.ID, Status: attendance.StatusAbsent},
		},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// resubmitting replaces the day's status
	_, err = f.svc.Submit(ctx, attendance.BulkAttendance{
		GradeID:  f.grade.ID,
		Date:     day,
		Students: []attendance.StudentStatus{{ID: f.ben.ID, Status: attendance.StatusPresent}},
	})
	require.NoError(t, err)

	recs, err = f.svc.Query(ctx, attendance.Filter{GradeID: f.grade.ID, Date: day})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	statuses := map[int]attendance.Status{}
	for _, r := range recs {
		statuses[r.StudentID] = r.Status
	}
	assert.Equal(t, attendance.StatusAbsent, statuses[f.ana.ID])
	assert.Equal(t, attendance.StatusPresent, statuses[f.ben.ID])
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.MarkAttendance(t, f.repo, f.ana.ID, testutil.Date(t, "2025-03-03"), attendance.StatusPresent)
	testutil.MarkAttendance(t, f.repo, f.ana.ID, testutil.Date(t, "2025-03-01"), attendance.StatusLate)
	testutil.MarkAttendance(t, f.repo, f.ben.ID, testutil.Date(t, "2025-03-02"), attendance.StatusAbsent)
	testutil.MarkAttendance(t, f.repo, f.cleo.ID, testutil.Date(t, "2025-03-02"), attendance.StatusPresent)

	tests := []struct {
		name   string
		filter attendance.Filter
		want   []string // dates
	}{
		{name: "all, by date", filter: attendance.Filter{}, want: []string{"2025-03-01", "2025-03-02", "2025-03-02", "2025-03-03"}},
		{name: "student", filter: attendance.Filter{StudentID: f.ana.ID}, want: []string{"2025-03-01", "2025-03-03"}},
		{name: "grade", filter: attendance.Filter{GradeID: f.otherGrade.ID}, want: []string{"2025-03-02"}},
		{name: "grades", filter: attendance.Filter{GradeIDs: []int{f.grade.ID}}, want: []string{"2025-03-01", "2025-03-02", "2025-03-03"}},
		{
			name:   "window",
			filter: attendance.Filter{From: testutil.Date(t, "2025-03-02"), To: testutil.Date(t, "2025-03-03"), GradeID: f.grade.ID},
			want:   []string{"2025-03-02", "2025-03-03"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := f.svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(recs))
			for _, r := range recs {
				got = append(got, r.Date.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_SubmitUniforms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := testutil.Date(t, "2025-03-03")

	_, err := f.svc.SubmitUniforms(ctx, attendance.BulkUniform{
		GradeID: f.grade.ID,
		Date:    day,
		Checks:  []attendance.UniformCheck{{StudentID: f.ana.ID, Item: "hat", Compliant: true}},
	})
	assert.True(t, core.IsValidation(err), "got %v", err)

	recs, err := f.svc.SubmitUniforms(ctx, attendance.BulkUniform{
		GradeID: f.grade.ID,
		Date:    day,
		Checks: []attendance.UniformCheck{
			{StudentID: f.ana.ID, Item: attendance.ItemShoes, Compliant: true},
			{StudentID: f.ana.ID, Item: attendance.ItemShirt, Compliant: true},
			{StudentID: f.ana.ID, Item: attendance.ItemShoes, Compliant: false},
		},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	got, err := f.svc.QueryUniforms(ctx, attendance.Filter{StudentID: f.ana.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		if r.Item == attendance.ItemShoes {
			assert.False(t, r.Compliant)
		}
	}

	_, err = f.svc.SubmitUniforms(ctx, attendance.BulkUniform{
		GradeID: f.grade.ID,
		Date:    day,
		Checks:  []attendance.UniformCheck{{StudentID: f.cleo.ID, Item: attendance.ItemShoes}},
	})
	assert.True(t, core.IsValidation(err), "got %v", err)
}
