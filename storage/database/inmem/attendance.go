package inmemdb

import (
	"context"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// checkStudents must be called with the lock held.
func (repo *attendanceRepository) checkStudents(ids []int) error {
	for _, id := range ids {
		if _, ok := repo.db.students[id]; !ok {
			return core.NewConflictError("student does not exist")
		}
	}
	return nil
}

// gradeOf must be called with the lock held.
func (repo *attendanceRepository) gradeOf(studentID int) int {
	return repo.db.students[studentID].GradeID
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, records []attendance.Record) ([]attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ids := make([]int, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.StudentID)
	}
	if err := repo.checkStudents(ids); err != nil {
		return nil, err
	}

	type key struct {
		studentID int
		date      string
	}
	existing := make(map[key]int, len(repo.db.attendance))
	for id, rec := range repo.db.attendance {
		existing[key{rec.StudentID, rec.Date.String()}] = id
	}

	res := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		k := key{rec.StudentID, rec.Date.String()}
		if id, ok := existing[k]; ok {
			rec.ID = id
		} else {
			rec.ID = repo.db.nextID("attendance")
			existing[k] = rec.ID
		}
		repo.db.attendance[rec.ID] = rec
		res = append(res, rec)
	}
	return res, nil
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter, ordering ...core.DBOrdering) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0, len(repo.db.attendance))
	for _, rec := range repo.db.attendance {
		if filter.Match(rec.StudentID, repo.gradeOf(rec.StudentID), rec.Date) {
			records = append(records, rec)
		}
	}
	orderRows(records, ordering, map[string]cmpFunc{
		"date":       func(i, j int) int { return cmpTime(records[i].Date.Time, records[j].Date.Time) },
		"student_id": func(i, j int) int { return cmpInt(records[i].StudentID, records[j].StudentID) },
		"status":     func(i, j int) int { return cmpString(string(records[i].Status), string(records[j].Status)) },
	}, func(i, j int) int { return cmpInt(records[i].ID, records[j].ID) })
	return records, nil
}

func (repo *attendanceRepository) UpsertUniforms(_ context.Context, records []attendance.UniformRecord) ([]attendance.UniformRecord, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ids := make([]int, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.StudentID)
	}
	if err := repo.checkStudents(ids); err != nil {
		return nil, err
	}

	type key struct {
		studentID int
		date      string
		item      attendance.Item
	}
	existing := make(map[key]int, len(repo.db.uniforms))
	for id, rec := range repo.db.uniforms {
		existing[key{rec.StudentID, rec.Date.String(), rec.Item}] = id
	}

	res := make([]attendance.UniformRecord, 0, len(records))
	for _, rec := range records {
		k := key{rec.StudentID, rec.Date.String(), rec.Item}
		if id, ok := existing[k]; ok {
			rec.ID = id
		} else {
			rec.ID = repo.db.nextID("uniforms")
			existing[k] = rec.ID
		}
		repo.db.uniforms[rec.ID] = rec
		res = append(res, rec)
	}
	return res, nil
}

func (repo *attendanceRepository) QueryUniforms(_ context.Context, filter attendance.Filter, ordering ...core.DBOrdering) ([]attendance.UniformRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.UniformRecord, 0, len(repo.db.uniforms))
	for _, rec := range repo.db.uniforms {
		if filter.Match(rec.StudentID, repo.gradeOf(rec.StudentID), rec.Date) {
			records = append(records, rec)
		}
	}
	orderRows(records, ordering, map[string]cmpFunc{
		"date":       func(i, j int) int { return cmpTime(records[i].Date.Time, records[j].Date.Time) },
		"student_id": func(i, j int) int { return cmpInt(records[i].StudentID, records[j].StudentID) },
		"item":       func(i, j int) int { return cmpString(string(records[i].Item), string(records[j].Item)) },
	}, func(i, j int) int { return cmpInt(records[i].ID, records[j].ID) })
	return records, nil
}
