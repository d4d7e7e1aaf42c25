package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateLevel(t *testing.T, repo school.Repository, name string) school.Level {
	lvl, err := repo.CreateLevel(context.Background(), school.Level{Name: name})
	if err != nil {
		t.Fatalf("CreateLevel() failed: %v", err)
	}
	return lvl
}

func CreateGrade(t *testing.T, repo school.Repository, name string, levelID int, teacherID *int) school.Grade {
	grd, err := repo.CreateGrade(context.Background(), school.Grade{Name: name, LevelID: levelID, TeacherID: teacherID})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return grd
}

func CreateStudent(t *testing.T, repo school.Repository, name, email string, gradeID int) school.Student {
	std, err := repo.CreateStudent(context.Background(), school.Student{
		Name:    name,
		Email:   core.StringPtr(email),
		GradeID: gradeID,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func MarkAttendance(t *testing.T, repo attendance.Repository, studentID int, date core.Date, status attendance.Status) attendance.Record {
	recs, err := repo.UpsertAttendance(context.Background(), []attendance.Record{{StudentID: studentID, Date: date, Status: status}})
	if err != nil || len(recs) != 1 {
		t.Fatalf("MarkAttendance() failed: %v", err)
	}
	return recs[0]
}

func Date(t *testing.T, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("Date(%q) failed: %v", s, err)
	}
	return d
}
