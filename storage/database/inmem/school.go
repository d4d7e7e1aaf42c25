package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// Levels

func (repo *schoolRepository) CreateLevel(_ context.Context, lvl school.Level) (school.Level, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	lvl.ID = repo.db.nextID("levels")
	repo.db.levels[lvl.ID] = lvl
	return lvl, nil
}

func (repo *schoolRepository) QueryLevels(_ context.Context, ordering ...core.DBOrdering) ([]school.Level, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	levels := make([]school.Level, 0, len(repo.db.levels))
	for _, lvl := range repo.db.levels {
		levels = append(levels, lvl)
	}
	orderRows(levels, ordering, map[string]cmpFunc{
		"name": func(i, j int) int { return cmpString(levels[i].Name, levels[j].Name) },
	}, func(i, j int) int { return cmpInt(levels[i].ID, levels[j].ID) })
	return levels, nil
}

func (repo *schoolRepository) GetLevel(_ context.Context, id int) (school.Level, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if lvl, ok := repo.db.levels[id]; ok {
		return lvl, nil
	}
	return school.Level{}, school.ErrLevelNotFound
}

func (repo *schoolRepository) UpdateLevel(_ context.Context, lvl school.Level) (school.Level, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.levels[lvl.ID]; !ok {
		return school.Level{}, school.ErrLevelNotFound
	}
	repo.db.levels[lvl.ID] = lvl
	return lvl, nil
}

func (repo *schoolRepository) DeleteLevel(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.levels[id]; !ok {
		return school.ErrLevelNotFound
	}
	for _, grd := range repo.db.grades {
		if grd.LevelID == id {
			return school.ErrLevelInUse
		}
	}
	delete(repo.db.levels, id)
	return nil
}

// Grades

// checkGradeRefs must be called with the lock held.
func (repo *schoolRepository) checkGradeRefs(grd school.Grade) error {
	if _, ok := repo.db.levels[grd.LevelID]; !ok {
		return core.NewConflictError("level does not exist")
	}
	if grd.TeacherID != nil {
		if _, ok := repo.db.users[*grd.TeacherID]; !ok {
			return core.NewConflictError("teacher does not exist")
		}
	}
	return nil
}

func (repo *schoolRepository) CreateGrade(_ context.Context, grd school.Grade) (school.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkGradeRefs(grd); err != nil {
		return school.Grade{}, err
	}
	grd.ID = repo.db.nextID("grades")
	repo.db.grades[grd.ID] = grd
	return grd, nil
}

func (repo *schoolRepository) QueryGrades(_ context.Context, filter school.GradeFilter, ordering ...core.DBOrdering) ([]school.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grades := make([]school.Grade, 0, len(repo.db.grades))
	for _, grd := range repo.db.grades {
		if filter.LevelID != 0 && grd.LevelID != filter.LevelID {
			continue
		}
		if filter.TeacherID != 0 && !grd.TaughtBy(filter.TeacherID) {
			continue
		}
		if len(filter.IDs) > 0 && !containsInt(filter.IDs, grd.ID) {
			continue
		}
		grades = append(grades, grd)
	}
	orderRows(grades, ordering, map[string]cmpFunc{
		"name":     func(i, j int) int { return cmpString(grades[i].Name, grades[j].Name) },
		"level_id": func(i, j int) int { return cmpInt(grades[i].LevelID, grades[j].LevelID) },
	}, func(i, j int) int { return cmpInt(grades[i].ID, grades[j].ID) })
	return grades, nil
}

func (repo *schoolRepository) GetGrade(_ context.Context, id int) (school.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if grd, ok := repo.db.grades[id]; ok {
		return grd, nil
	}
	return school.Grade{}, school.ErrGradeNotFound
}

func (repo *schoolRepository) UpdateGrade(_ context.Context, grd school.Grade) (school.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[grd.ID]; !ok {
		return school.Grade{}, school.ErrGradeNotFound
	}
	if err := repo.checkGradeRefs(grd); err != nil {
		return school.Grade{}, err
	}
	repo.db.grades[grd.ID] = grd
	return grd, nil
}

func (repo *schoolRepository) DeleteGrade(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return school.ErrGradeNotFound
	}
	for _, std := range repo.db.students {
		if std.GradeID == id {
			return school.ErrGradeInUse
		}
	}
	delete(repo.db.grades, id)
	for rid, rep := range repo.db.reports {
		if rep.GradeID == id {
			delete(repo.db.reports, rid)
		}
	}
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(_ context.Context, std school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[std.GradeID]; !ok {
		return school.Student{}, core.NewConflictError("grade does not exist")
	}
	std.ID = repo.db.nextID("students")
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		if filter.GradeID != 0 && std.GradeID != filter.GradeID {
			continue
		}
		if len(filter.GradeIDs) > 0 && !containsInt(filter.GradeIDs, std.GradeID) {
			continue
		}
		if filter.Email != "" && (std.Email == nil || *std.Email != filter.Email) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(std.Name), filter.Search) {
			continue
		}
		students = append(students, std)
	}
	orderRows(students, ordering, map[string]cmpFunc{
		"name":     func(i, j int) int { return cmpString(students[i].Name, students[j].Name) },
		"grade_id": func(i, j int) int { return cmpInt(students[i].GradeID, students[j].GradeID) },
	}, func(i, j int) int { return cmpInt(students[i].ID, students[j].ID) })
	return students, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id int) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, std school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	if _, ok := repo.db.grades[std.GradeID]; !ok {
		return school.Student{}, core.NewConflictError("grade does not exist")
	}
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *schoolRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return school.ErrStudentNotFound
	}
	delete(repo.db.students, id)

	// cascade
	for rid, rec := range repo.db.attendance {
		if rec.StudentID == id {
			delete(repo.db.attendance, rid)
		}
	}
	for rid, rec := range repo.db.uniforms {
		if rec.StudentID == id {
			delete(repo.db.uniforms, rid)
		}
	}
	for rid, rep := range repo.db.reports {
		if rep.StudentID != nil && *rep.StudentID == id {
			delete(repo.db.reports, rid)
		}
	}
	return nil
}
