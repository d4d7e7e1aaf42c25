package access

import "github.com/trezcool/asistencia/core/user"

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Kind string

const (
	KindUser       Kind = "user"
	KindLevel      Kind = "level"
	KindGrade      Kind = "grade"
	KindStudent    Kind = "student"
	KindAttendance Kind = "attendance"
	KindUniform    Kind = "uniform"
	KindReport     Kind = "report"
	KindSetting    Kind = "setting"
)

type ScopeType string

const (
	ScopeAll     ScopeType = "all"
	ScopeID      ScopeType = "id"      // a single row of the resource kind
	ScopeStudent ScopeType = "student" // the rows of a student
	ScopeGrade   ScopeType = "grade"   // the rows of a grade
	ScopeLevel   ScopeType = "level"   // the rows of a level
)

type Scope struct {
	Type ScopeType
	ID   int
}

func All() Scope             { return Scope{Type: ScopeAll} }
func ByID(id int) Scope      { return Scope{Type: ScopeID, ID: id} }
func OfStudent(id int) Scope { return Scope{Type: ScopeStudent, ID: id} }
func OfGrade(id int) Scope   { return Scope{Type: ScopeGrade, ID: id} }
func OfLevel(id int) Scope   { return Scope{Type: ScopeLevel, ID: id} }

// Owner holds the ownership facts of a resource, resolved fresh for every decision.
type Owner struct {
	GradeID        *int // grade the rows belong to
	GradeTeacherID *int // teacher of that grade
	StudentID      *int // student the rows belong to; nil on grade-wide rows
	UserID         *int // the user account itself
}

type Resource struct {
	Kind  Kind
	Scope Scope
	Owner Owner
}

// Principal is the authenticated caller. The zero Principal is anonymous.
type Principal struct {
	Role      user.Role
	UserID    int
	StudentID *int // student row linked to a student account
	GradeID   *int // grade of that student row
}

func (p Principal) IsAnonymous() bool { return p.Role == "" }

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }
func eq(a *int, b int) bool       { return a != nil && *a == b }
func eqPtr(a, b *int) bool        { return a != nil && b != nil && *a == *b }

// Evaluate decides whether p may perform act on res.
func Evaluate(p Principal, act Action, res Resource) Decision {
	switch p.Role {
	case user.RoleAdmin:
		return allow()
	case user.RoleTeacher, user.RoleStudent:
		// pass
	default:
		return deny("authentication required")
	}

	if res.Kind == KindSetting {
		if act == ActionRead {
			return allow()
		}
		return deny("settings can only be changed by admins")
	}
	if res.Kind == KindUser {
		if act == ActionRead && res.Scope.Type == ScopeID && eq(res.Owner.UserID, p.UserID) {
			return allow()
		}
		return deny("users can only be managed by admins")
	}
	if res.Scope.Type == ScopeAll {
		return deny("listing every " + string(res.Kind) + " is reserved to admins")
	}

	if p.Role == user.RoleTeacher {
		return evaluateTeacher(p, act, res)
	}
	return evaluateStudent(p, act, res)
}

func evaluateTeacher(p Principal, act Action, res Resource) Decision {
	owned := eq(res.Owner.GradeTeacherID, p.UserID)

	switch res.Kind {
	case KindGrade:
		if act == ActionRead && owned {
			return allow()
		}
		return deny("teachers can only read their own grades")
	case KindAttendance, KindUniform, KindReport, KindStudent:
		if act == ActionDelete {
			return deny("teachers cannot delete records")
		}
		if owned {
			return allow()
		}
		return deny("grade is not taught by this teacher")
	}
	return deny("reserved to admins")
}

func evaluateStudent(p Principal, act Action, res Resource) Decision {
	if act != ActionRead {
		return deny("students cannot modify records")
	}

	switch res.Kind {
	case KindStudent, KindAttendance:
		if eqPtr(res.Owner.StudentID, p.StudentID) {
			return allow()
		}
	case KindReport:
		if eqPtr(res.Owner.StudentID, p.StudentID) {
			return allow()
		}
		// a single broadcast row to the student's grade
		if res.Scope.Type == ScopeID && res.Owner.StudentID == nil && eqPtr(res.Owner.GradeID, p.GradeID) {
			return allow()
		}
	}
	return deny("students can only read their own records")
}
