package attendance

import "github.com/trezcool/asistencia/core"

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate}

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

type Item string

const (
	ItemShoes   Item = "shoes"
	ItemShirt   Item = "shirt"
	ItemPants   Item = "pants"
	ItemSweater Item = "sweater"
	ItemHaircut Item = "haircut"
	ItemOther   Item = "other"
)

var AllItems = []Item{ItemShoes, ItemShirt, ItemPants, ItemSweater, ItemHaircut, ItemOther}

func (i Item) Valid() bool {
	for _, item := range AllItems {
		if i == item {
			return true
		}
	}
	return false
}

// Record is the attendance of a student on a given day. Unique per (StudentID, Date).
type Record struct {
	ID        int       `json:"id" db:"id"`
	StudentID int       `json:"studentId" db:"student_id"`
	Date      core.Date `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
}

// UniformRecord is the compliance of a student's uniform item on a given day.
// Unique per (StudentID, Date, Item).
type UniformRecord struct {
	ID        int       `json:"id" db:"id"`
	StudentID int       `json:"studentId" db:"student_id"`
	Date      core.Date `json:"date" db:"date"`
	Item      Item      `json:"item" db:"item"`
	Compliant bool      `json:"compliant" db:"compliant"`
}

type StudentStatus struct {
	ID     int    `json:"id" validate:"required,gt=0"`
	Status Status `json:"status" validate:"required,attstatus"`
}

// BulkAttendance is the attendance of (part of) a grade on a given day.
type BulkAttendance struct {
	GradeID  int             `json:"gradeId" validate:"required,gt=0"`
	Date     core.Date       `json:"date"`
	Students []StudentStatus `json:"students" validate:"required,min=1,dive"`
}

type UniformCheck struct {
	StudentID int  `json:"studentId" validate:"required,gt=0"`
	Item      Item `json:"item" validate:"required,uniformitem"`
	Compliant bool `json:"compliant"`
}

// BulkUniform is the uniform check of (part of) a grade on a given day.
type BulkUniform struct {
	GradeID int            `json:"gradeId" validate:"required,gt=0"`
	Date    core.Date      `json:"date"`
	Checks  []UniformCheck `json:"checks" validate:"required,min=1,dive"`
}

// Filter applies AND operation on its non-zero fields.
// From & To bound the date range (inclusive).
type Filter struct {
	StudentID  int
	StudentIDs []int
	GradeID    int
	GradeIDs   []int
	Date       core.Date
	From       core.Date
	To         core.Date
}

// Match reports whether a row of studentID/gradeID on date d satisfies the filter.
func (f Filter) Match(studentID, gradeID int, d core.Date) bool {
	if f.StudentID != 0 && f.StudentID != studentID {
		return false
	}
	if len(f.StudentIDs) > 0 && !containsInt(f.StudentIDs, studentID) {
		return false
	}
	if f.GradeID != 0 && f.GradeID != gradeID {
		return false
	}
	if len(f.GradeIDs) > 0 && !containsInt(f.GradeIDs, gradeID) {
		return false
	}
	if !f.Date.IsZero() && !f.Date.Equal(d) {
		return false
	}
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	return true
}

func containsInt(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
