package user

import "github.com/pkg/errors"

type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Portal is the role-specific face of the application.
// The set of portals is closed: AdminPortal, TeacherPortal and StudentPortal.
type Portal interface {
	Role() Role
	Menu() []MenuItem
	portal()
}

type (
	AdminPortal   struct{}
	TeacherPortal struct{}
	StudentPortal struct{}
)

var (
	_ Portal = AdminPortal{}
	_ Portal = TeacherPortal{}
	_ Portal = StudentPortal{}
)

func (AdminPortal) Role() Role { return RoleAdmin }
func (AdminPortal) Menu() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Path: "/admin"},
		{Label: "Users", Path: "/admin/users"},
		{Label: "Levels", Path: "/admin/levels"},
		{Label: "Grades", Path: "/admin/grades"},
		{Label: "Students", Path: "/admin/students"},
		{Label: "Attendance", Path: "/admin/attendance"},
		{Label: "Uniforms", Path: "/admin/uniforms"},
		{Label: "Reports", Path: "/admin/reports"},
		{Label: "Settings", Path: "/admin/settings"},
	}
}
func (AdminPortal) portal() {}

func (TeacherPortal) Role() Role { return RoleTeacher }
func (TeacherPortal) Menu() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Path: "/teacher"},
		{Label: "Take attendance", Path: "/teacher/attendance"},
		{Label: "Uniform check", Path: "/teacher/uniforms"},
		{Label: "Students", Path: "/teacher/students"},
		{Label: "Reports", Path: "/teacher/reports"},
	}
}
func (TeacherPortal) portal() {}

func (StudentPortal) Role() Role { return RoleStudent }
func (StudentPortal) Menu() []MenuItem {
	return []MenuItem{
		{Label: "Dashboard", Path: "/student"},
		{Label: "My attendance", Path: "/student/attendance"},
		{Label: "My reports", Path: "/student/reports"},
	}
}
func (StudentPortal) portal() {}

// PortalFor returns the portal of the given role.
func PortalFor(role Role) (Portal, error) {
	switch role {
	case RoleAdmin:
		return AdminPortal{}, nil
	case RoleTeacher:
		return TeacherPortal{}, nil
	case RoleStudent:
		return StudentPortal{}, nil
	}
	return nil, errors.Errorf("unknown role %q", role)
}
