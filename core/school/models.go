package school

import "github.com/trezcool/asistencia/core"

type Level struct {
	ID          int     `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description" db:"description"`
}

type Grade struct {
	ID        int    `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	LevelID   int    `json:"levelId" db:"level_id"`
	TeacherID *int   `json:"teacherId" db:"teacher_id"`
}

// TaughtBy reports whether teacherID is the grade's teacher.
func (g Grade) TaughtBy(teacherID int) bool {
	return g.TeacherID != nil && *g.TeacherID == teacherID
}

type Student struct {
	ID      int     `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	Email   *string `json:"email" db:"email"` // guardian contact
	GradeID int     `json:"gradeId" db:"grade_id"`
}

// NewLevel contains information needed to create a Level.
type NewLevel struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (nl *NewLevel) clean() {
	nl.Name = core.CleanString(nl.Name)
	nl.Description = core.CleanString(nl.Description)
}

// UpdateLevel replaces all the editable fields of a Level.
type UpdateLevel struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (ul *UpdateLevel) clean() {
	ul.Name = core.CleanString(ul.Name)
	ul.Description = core.CleanString(ul.Description)
}

type NewGrade struct {
	Name      string `json:"name" validate:"required,max=100"`
	LevelID   int    `json:"levelId" validate:"required,gt=0"`
	TeacherID *int   `json:"teacherId" validate:"omitempty,gt=0"`
}

func (ng *NewGrade) clean() {
	ng.Name = core.CleanString(ng.Name)
}

type UpdateGrade struct {
	Name      string `json:"name" validate:"required,max=100"`
	LevelID   int    `json:"levelId" validate:"required,gt=0"`
	TeacherID *int   `json:"teacherId" validate:"omitempty,gt=0"`
}

func (ug *UpdateGrade) clean() {
	ug.Name = core.CleanString(ug.Name)
}

type NewStudent struct {
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"omitempty,email"`
	GradeID int    `json:"gradeId" validate:"required,gt=0"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
}

type UpdateStudent struct {
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"omitempty,email"`
	GradeID int    `json:"gradeId" validate:"required,gt=0"`
}

func (us *UpdateStudent) clean() {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
}

// GradeFilter applies AND operation on its non-zero fields.
type GradeFilter struct {
	LevelID   int
	TeacherID int
	IDs       []int
}

// StudentFilter applies AND operation on its non-zero fields.
// Search does a case-insensitive match on Student.Name.
type StudentFilter struct {
	GradeID  int
	GradeIDs []int
	Email    string
	Search   string
}

func (sf *StudentFilter) Clean() {
	sf.Email = core.CleanString(sf.Email, true /* lower */)
	sf.Search = core.CleanString(sf.Search, true /* lower */)
}
