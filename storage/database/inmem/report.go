package inmemdb

import (
	"context"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(_ context.Context, rep report.Report) (report.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[rep.GradeID]; !ok {
		return report.Report{}, core.NewConflictError("grade does not exist")
	}
	if rep.StudentID != nil {
		if _, ok := repo.db.students[*rep.StudentID]; !ok {
			return report.Report{}, core.NewConflictError("student does not exist")
		}
	}
	rep.ID = repo.db.nextID("reports")
	rep.Subject, rep.Body = "", "" // only the text is stored
	repo.db.reports[rep.ID] = rep
	return rep, nil
}

func (repo *reportRepository) match(filter report.QueryFilter, rep report.Report) bool {
	if filter.Audience {
		if rep.StudentID != nil {
			return *rep.StudentID == filter.StudentID
		}
		return rep.GradeID == filter.GradeID
	}
	if filter.StudentID != 0 && (rep.StudentID == nil || *rep.StudentID != filter.StudentID) {
		return false
	}
	if filter.GradeID != 0 && rep.GradeID != filter.GradeID {
		return false
	}
	if len(filter.GradeIDs) > 0 && !containsInt(filter.GradeIDs, rep.GradeID) {
		return false
	}
	return true
}

func (repo *reportRepository) QueryReports(_ context.Context, filter report.QueryFilter, ordering ...core.DBOrdering) ([]report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reps := make([]report.Report, 0)
	for _, rep := range repo.db.reports {
		if repo.match(filter, rep) {
			reps = append(reps, rep)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "sent_at"}}
	}
	orderRows(reps, ordering, map[string]cmpFunc{
		"sent_at":  func(i, j int) int { return cmpTime(reps[i].SentAt, reps[j].SentAt) },
		"type":     func(i, j int) int { return cmpString(string(reps[i].Type), string(reps[j].Type)) },
		"grade_id": func(i, j int) int { return cmpInt(reps[i].GradeID, reps[j].GradeID) },
		"id":       func(i, j int) int { return cmpInt(reps[i].ID, reps[j].ID) },
	}, func(i, j int) int { return cmpInt(reps[i].ID, reps[j].ID) })
	return reps, nil
}

func (repo *reportRepository) GetReport(_ context.Context, id int) (report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rep, ok := repo.db.reports[id]; ok {
		return rep, nil
	}
	return report.Report{}, report.ErrNotFound
}
