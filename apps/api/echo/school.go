package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

type schoolAPI struct {
	*server
	svc *school.Service
}

func registerSchoolAPI(authed *echo.Group, s *server) {
	api := schoolAPI{server: s, svc: s.deps.SchoolSvc}

	lg := authed.Group("/levels")
	lg.GET("", api.queryLevels)
	lg.POST("", api.createLevel)
	lg.GET("/:id", api.retrieveLevel)
	lg.PUT("/:id", api.updateLevel)
	lg.DELETE("/:id", api.destroyLevel)

	gg := authed.Group("/grades")
	gg.GET("", api.queryGrades)
	gg.POST("", api.createGrade)
	gg.GET("/:id", api.retrieveGrade)
	gg.PUT("/:id", api.updateGrade)
	gg.DELETE("/:id", api.destroyGrade)

	sg := authed.Group("/students")
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)
}

// Levels

func (api *schoolAPI) queryLevels(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead, access.KindLevel, access.All()); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	levels, err := api.svc.QueryLevels(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying levels")
	}
	return ctx.JSON(http.StatusOK, levels)
}

func (api *schoolAPI) createLevel(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionCreate, access.KindLevel, access.All()); err != nil {
		return err
	}
	var data school.NewLevel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	lvl, err := api.svc.CreateLevel(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating level")
	}
	return ctx.JSON(http.StatusCreated, lvl)
}

func (api *schoolAPI) retrieveLevel(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindLevel, access.ByID(id)); err != nil {
		return err
	}
	lvl, err := api.svc.GetLevel(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *schoolAPI) updateLevel(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionUpdate, access.KindLevel, access.ByID(id)); err != nil {
		return err
	}
	var data school.UpdateLevel
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLevel")
	}
	lvl, err := api.svc.UpdateLevel(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *schoolAPI) destroyLevel(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionDelete, access.KindLevel, access.ByID(id)); err != nil {
		return err
	}
	if err = api.svc.DeleteLevel(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grades

// queryGrades lists every grade to admins, and the grades the principal may read to others.
func (api *schoolAPI) queryGrades(ctx echo.Context) error {
	p := getContextPrincipal(ctx)
	var filter school.GradeFilter
	var err error
	if filter.LevelID, err = queryInt(ctx, "level_id"); err != nil {
		return err
	}
	if filter.TeacherID, err = queryInt(ctx, "teacher_id"); err != nil {
		return err
	}
	if p.Role == user.RoleTeacher {
		filter.TeacherID = p.UserID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	grades, err := api.svc.QueryGrades(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if p.Role == user.RoleAdmin {
		return ctx.JSON(http.StatusOK, grades)
	}

	readable := make([]school.Grade, 0, len(grades))
	for _, grd := range grades {
		if api.allowed(ctx, access.ActionRead, access.KindGrade, access.ByID(grd.ID)) {
			readable = append(readable, grd)
		}
	}
	return ctx.JSON(http.StatusOK, readable)
}

func (api *schoolAPI) createGrade(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionCreate, access.KindGrade, access.All()); err != nil {
		return err
	}
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	grd, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *schoolAPI) retrieveGrade(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindGrade, access.ByID(id)); err != nil {
		return err
	}
	grd, err := api.svc.GetGrade(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolAPI) updateGrade(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionUpdate, access.KindGrade, access.ByID(id)); err != nil {
		return err
	}
	var data school.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	grd, err := api.svc.UpdateGrade(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolAPI) destroyGrade(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionDelete, access.KindGrade, access.ByID(id)); err != nil {
		return err
	}
	if err = api.svc.DeleteGrade(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

// studentFilter narrows the student rows to the grades a non-admin principal may read.
// ok is false when the principal can read no grade at all.
func (api *schoolAPI) studentFilter(ctx echo.Context) (filter school.StudentFilter, ok bool, err error) {
	filter = school.StudentFilter{Search: ctx.QueryParam("search")}
	if filter.GradeID, err = queryInt(ctx, "grade_id"); err != nil {
		return filter, false, err
	}

	p := getContextPrincipal(ctx)
	if filter.GradeID != 0 {
		err = api.authorize(ctx, access.ActionRead, access.KindStudent, access.OfGrade(filter.GradeID))
		return filter, err == nil, err
	}
	switch p.Role {
	case user.RoleAdmin:
		return filter, true, nil
	case user.RoleTeacher:
		grades, err := api.svc.TeacherGrades(ctx.Request().Context(), p.UserID)
		if err != nil {
			return filter, false, errors.Wrap(err, "getting teacher grades")
		}
		for _, grd := range grades {
			filter.GradeIDs = append(filter.GradeIDs, grd.ID)
		}
		return filter, len(filter.GradeIDs) > 0, nil
	case user.RoleStudent:
		if p.GradeID == nil {
			return filter, false, nil
		}
		filter.GradeID = *p.GradeID
		return filter, true, nil
	}
	return filter, false, errHTTPForbidden
}

func (api *schoolAPI) queryStudents(ctx echo.Context) error {
	filter, ok, err := api.studentFilter(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if getContextPrincipal(ctx).Role == user.RoleAdmin {
		return ctx.JSON(http.StatusOK, students)
	}

	readable := make([]school.Student, 0, len(students))
	for _, std := range students {
		if api.allowed(ctx, access.ActionRead, access.KindStudent, access.ByID(std.ID)) {
			readable = append(readable, std)
		}
	}
	return ctx.JSON(http.StatusOK, readable)
}

func (api *schoolAPI) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := api.authorizeGradeWrite(ctx, access.ActionCreate, access.KindStudent, data.GradeID); err != nil {
		return err
	}
	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolAPI) retrieveStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindStudent, access.ByID(id)); err != nil {
		return err
	}
	std, err := api.svc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolAPI) updateStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionUpdate, access.KindStudent, access.ByID(id)); err != nil {
		return err
	}
	var data school.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	// moving a student requires the same rights on the target grade
	if err = api.authorizeGradeWrite(ctx, access.ActionUpdate, access.KindStudent, data.GradeID); err != nil {
		return err
	}
	std, err := api.svc.UpdateStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolAPI) destroyStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionDelete, access.KindStudent, access.ByID(id)); err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
