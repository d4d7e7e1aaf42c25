package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/projection"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

type projectionAPI struct {
	*server
	svc *projection.Service
}

func registerProjectionAPI(authed *echo.Group, s *server) {
	api := projectionAPI{server: s, svc: s.deps.ProjectionSvc}

	grp := authed.Group("/projections")
	grp.GET("/levels", api.levels)
	grp.GET("/grades", api.grades)
	grp.GET("/grades/:id", api.grade)
	grp.GET("/students/:id", api.student)
	grp.GET("/distribution", api.distribution)
	grp.GET("/compliance", api.compliance)
	grp.GET("/uniforms/:id", api.uniforms)
}

func window(ctx echo.Context) (projection.Window, error) {
	from, to, err := queryWindow(ctx)
	return projection.Window{From: from, To: to}, err
}

func (api *projectionAPI) levels(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead, access.KindAttendance, access.All()); err != nil {
		return err
	}
	w, err := window(ctx)
	if err != nil {
		return err
	}
	view, err := api.svc.Levels(ctx.Request().Context(), w)
	if err != nil {
		return errors.Wrap(err, "projecting levels")
	}
	return ctx.JSON(http.StatusOK, view)
}

// grades projects the grades of the calling teacher, or every grade (of a level) for admins.
func (api *projectionAPI) grades(ctx echo.Context) error {
	w, err := window(ctx)
	if err != nil {
		return err
	}

	p := getContextPrincipal(ctx)
	var gradeIDs []int
	switch p.Role {
	case user.RoleAdmin:
		levelID, err := queryInt(ctx, "level_id")
		if err != nil {
			return err
		}
		grades, err := api.deps.SchoolSvc.QueryGrades(ctx.Request().Context(), school.GradeFilter{LevelID: levelID})
		if err != nil {
			return errors.Wrap(err, "querying grades")
		}
		for _, grd := range grades {
			gradeIDs = append(gradeIDs, grd.ID)
		}
	case user.RoleTeacher:
		grades, err := api.deps.SchoolSvc.TeacherGrades(ctx.Request().Context(), p.UserID)
		if err != nil {
			return errors.Wrap(err, "getting teacher grades")
		}
		for _, grd := range grades {
			gradeIDs = append(gradeIDs, grd.ID)
		}
	default:
		return errHTTPForbidden
	}

	view, err := api.svc.Grades(ctx.Request().Context(), gradeIDs, w)
	if err != nil {
		return errors.Wrap(err, "projecting grades")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *projectionAPI) grade(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindAttendance, access.OfGrade(id)); err != nil {
		return err
	}
	w, err := window(ctx)
	if err != nil {
		return err
	}
	view, err := api.svc.Grades(ctx.Request().Context(), []int{id}, w)
	if err != nil {
		return errors.Wrap(err, "projecting grade")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *projectionAPI) student(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindAttendance, access.OfStudent(id)); err != nil {
		return err
	}
	w, err := window(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.Student(ctx.Request().Context(), id, w)
	if err != nil {
		return errors.Wrap(err, "projecting student")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *projectionAPI) distribution(ctx echo.Context) error {
	filter, ok, err := api.recordFilter(ctx, access.KindAttendance)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.JSON(http.StatusOK, []projection.Slice{})
	}
	slices, err := api.svc.Distribution(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "projecting distribution")
	}
	return ctx.JSON(http.StatusOK, slices)
}

// compliance scores a teacher's attendance taking over a month, the current one by default.
func (api *projectionAPI) compliance(ctx echo.Context) error {
	teacherID, err := queryInt(ctx, "teacher_id")
	if err != nil {
		return err
	}
	if teacherID == 0 {
		teacherID = getContextPrincipal(ctx).UserID
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindUser, access.ByID(teacherID)); err != nil {
		return err
	}

	now := time.Now()
	year, month := now.Year(), now.Month()
	if year, err = queryIntDefault(ctx, "year", year); err != nil {
		return err
	}
	m, err := queryIntDefault(ctx, "month", int(month))
	if err != nil {
		return err
	}
	if m > 12 {
		return invalidParam("month", "must be between 1 and 12")
	}

	points, err := api.svc.Compliance(ctx.Request().Context(), teacherID, year, time.Month(m))
	if err != nil {
		return errors.Wrap(err, "projecting compliance")
	}
	return ctx.JSON(http.StatusOK, points)
}

func (api *projectionAPI) uniforms(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindUniform, access.OfGrade(id)); err != nil {
		return err
	}
	w, err := window(ctx)
	if err != nil {
		return err
	}
	items, err := api.svc.Uniforms(ctx.Request().Context(), id, w)
	if err != nil {
		return errors.Wrap(err, "projecting uniforms")
	}
	return ctx.JSON(http.StatusOK, items)
}

func queryIntDefault(ctx echo.Context, name string, def int) (int, error) {
	if ctx.QueryParam(name) == "" {
		return def, nil
	}
	i, err := queryInt(ctx, name)
	if err != nil {
		return 0, err
	}
	return i, nil
}
