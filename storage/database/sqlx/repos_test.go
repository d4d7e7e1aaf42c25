package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/setting"
	"github.com/trezcool/asistencia/core/user"
	sqlxrepos "github.com/trezcool/asistencia/storage/database/sqlx"
	testutil "github.com/trezcool/asistencia/tests"
)

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	alice := testutil.CreateUser(t, repo, "Alice", "alice@example.com", "", user.RoleTeacher)
	testutil.CreateUser(t, repo, "Bob", "bob@example.com", "", user.RoleStudent)

	_, err := repo.CreateUser(ctx, user.User{Name: "Dup", Email: "alice@example.com", Role: user.RoleAdmin})
	assert.True(t, core.IsConflict(err))

	users, err := repo.QueryUsers(ctx, user.QueryFilter{Search: "ALI"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)

	users, err = repo.QueryUsers(ctx, user.QueryFilter{}, core.DBOrdering{Field: "name"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[0].Name)

	got, err := repo.GetUser(ctx, user.GetFilter{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got.Name = "Alice B."
	updated, err := repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", updated.Name)

	require.NoError(t, repo.DeleteUser(ctx, alice.ID))
	_, err = repo.GetUser(ctx, user.GetFilter{ID: alice.ID})
	assert.Equal(t, user.ErrNotFound, err)
	assert.Equal(t, user.ErrNotFound, repo.DeleteUser(ctx, alice.ID))
}

func TestSchoolRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewSchoolRepository(db)

	teacher := testutil.CreateUser(t, users, "Teacher", "teacher@example.com", "", user.RoleTeacher)
	lvl := testutil.CreateLevel(t, repo, "Primary")
	grd := testutil.CreateGrade(t, repo, "Grade 10", lvl.ID, &teacher.ID)
	std := testutil.CreateStudent(t, repo, "Ana", "ana@example.com", grd.ID)

	assert.Equal(t, school.ErrLevelInUse, repo.DeleteLevel(ctx, lvl.ID))
	assert.Equal(t, school.ErrGradeInUse, repo.DeleteGrade(ctx, grd.ID))
	assert.Equal(t, school.ErrLevelNotFound, repo.DeleteLevel(ctx, 999))

	grades, err := repo.QueryGrades(ctx, school.GradeFilter{TeacherID: teacher.ID})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, grd.ID, grades[0].ID)

	students, err := repo.QueryStudents(ctx, school.StudentFilter{Search: "an"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, std.ID, students[0].ID)

	_, err = repo.CreateStudent(ctx, school.Student{Name: "Ghost", GradeID: 999})
	assert.True(t, core.IsConflict(err))

	require.NoError(t, repo.DeleteStudent(ctx, std.ID))
	require.NoError(t, repo.DeleteGrade(ctx, grd.ID))
	require.NoError(t, repo.DeleteLevel(ctx, lvl.ID))
	_, err = repo.GetLevel(ctx, lvl.ID)
	assert.Equal(t, school.ErrLevelNotFound, err)
}

func TestAttendanceRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	repo := sqlxrepos.NewAttendanceRepository(db)

	lvl := testutil.CreateLevel(t, schoolRepo, "Primary")
	grd := testutil.CreateGrade(t, schoolRepo, "Grade 10", lvl.ID, nil)
	other := testutil.CreateGrade(t, schoolRepo, "Grade 11", lvl.ID, nil)
	std := testutil.CreateStudent(t, schoolRepo, "Ana", "", grd.ID)
	std2 := testutil.CreateStudent(t, schoolRepo, "Ben", "", other.ID)
	day := testutil.Date(t, "2025-03-03")

	first := testutil.MarkAttendance(t, repo, std.ID, day, attendance.StatusPresent)
	second := testutil.MarkAttendance(t, repo, std.ID, day, attendance.StatusAbsent)
	assert.Equal(t, first.ID, second.ID)
	testutil.MarkAttendance(t, repo, std2.ID, day, attendance.StatusLate)

	recs, err := repo.QueryAttendance(ctx, attendance.Filter{GradeID: grd.ID, Date: day})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.StatusAbsent, recs[0].Status)
	assert.True(t, recs[0].Date.Equal(day))

	recs, err = repo.QueryAttendance(ctx, attendance.Filter{From: day, To: day})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	uniforms, err := repo.UpsertUniforms(ctx, []attendance.UniformRecord{
		{StudentID: std.ID, Date: day, Item: attendance.ItemShoes, Compliant: true},
		{StudentID: std.ID, Date: day, Item: attendance.ItemShirt, Compliant: false},
	})
	require.NoError(t, err)
	require.Len(t, uniforms, 2)

	_, err = repo.UpsertUniforms(ctx, []attendance.UniformRecord{
		{StudentID: std.ID, Date: day, Item: attendance.ItemShoes, Compliant: false},
	})
	require.NoError(t, err)

	uniforms, err = repo.QueryUniforms(ctx, attendance.Filter{StudentID: std.ID})
	require.NoError(t, err)
	require.Len(t, uniforms, 2)
	for _, u := range uniforms {
		assert.False(t, u.Compliant)
	}
}

func TestReportRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	repo := sqlxrepos.NewReportRepository(db)

	lvl := testutil.CreateLevel(t, schoolRepo, "Primary")
	grd := testutil.CreateGrade(t, schoolRepo, "Grade 10", lvl.ID, nil)
	ana := testutil.CreateStudent(t, schoolRepo, "Ana", "", grd.ID)
	ben := testutil.CreateStudent(t, schoolRepo, "Ben", "", grd.ID)

	now := time.Now().UTC().Truncate(time.Second)
	own, err := repo.CreateReport(ctx, report.Report{StudentID: &ana.ID, GradeID: grd.ID, Type: report.TypeUniform, Text: report.Encode("Shoes", "Black shoes only"), SentAt: now})
	require.NoError(t, err)
	broadcast, err := repo.CreateReport(ctx, report.Report{GradeID: grd.ID, Type: report.TypeGeneral, Text: report.Encode("Trip", "Friday"), SentAt: now.Add(time.Minute)})
	require.NoError(t, err)
	_, err = repo.CreateReport(ctx, report.Report{StudentID: &ben.ID, GradeID: grd.ID, Type: report.TypeBehavior, Text: report.Encode("Talk", "Too much"), SentAt: now})
	require.NoError(t, err)

	reps, err := repo.QueryReports(ctx, report.QueryFilter{StudentID: ana.ID, GradeID: grd.ID, Audience: true})
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, broadcast.ID, reps[0].ID) // newest first
	assert.Equal(t, own.ID, reps[1].ID)

	got, err := repo.GetReport(ctx, own.ID)
	require.NoError(t, err)
	got.Expand()
	assert.Equal(t, "Shoes", got.Subject)
	assert.Equal(t, "Black shoes only", got.Body)

	_, err = repo.GetReport(ctx, 999)
	assert.Equal(t, report.ErrNotFound, err)
}

func TestSettingRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewSettingRepository(db)

	s, err := repo.GetSetting(ctx, setting.KeyAttendanceStart)
	require.NoError(t, err)
	assert.Equal(t, "07:00", s.Value)

	s, err = repo.SaveSetting(ctx, setting.Setting{Key: setting.KeyAttendanceStart, Value: "07:30"})
	require.NoError(t, err)
	assert.Equal(t, "07:30", s.Value)

	_, err = repo.GetSetting(ctx, "unknown")
	assert.Equal(t, setting.ErrNotFound, err)

	_, err = repo.SaveSetting(ctx, setting.Setting{Key: setting.KeyAttendanceStart, Value: "07:00"})
	require.NoError(t, err)
}

func TestTokenStore(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	store := sqlxrepos.NewTokenStore(db)

	usr := testutil.CreateUser(t, users, "Alice", "alice@example.com", "", user.RoleAdmin)
	now := time.Now().UTC()

	require.NoError(t, store.SaveToken(ctx, "live", usr.ID, now.Add(time.Hour)))
	require.NoError(t, store.SaveToken(ctx, "stale", usr.ID, now.Add(-time.Hour)))

	id, err := store.ConsumeToken(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = store.ConsumeToken(ctx, "live", now)
	assert.Equal(t, user.ErrInvalidToken, err)

	require.NoError(t, store.SaveToken(ctx, "stale2", usr.ID, now.Add(-time.Minute)))
	n, err := store.PurgeExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
