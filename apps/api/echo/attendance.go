package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/user"
)

type attendanceAPI struct {
	*server
	svc *attendance.Service
}

func registerAttendanceAPI(authed *echo.Group, s *server) {
	api := attendanceAPI{server: s, svc: s.deps.AttendanceSvc}

	authed.GET("/attendance", api.query)
	authed.POST("/attendance", api.submit)
	authed.GET("/uniforms", api.queryUniforms)
	authed.POST("/uniforms", api.submitUniforms)
}

// recordFilter reads the filter query params of a listing of kind, narrowed to what the principal may read.
// Explicit grade_id & student_id params are authorized; otherwise admins read every row,
// teachers the rows of their grades and students their own rows.
// ok is false when nothing is readable.
func (s *server) recordFilter(ctx echo.Context, kind access.Kind) (filter attendance.Filter, ok bool, err error) {
	if filter.StudentID, err = queryInt(ctx, "student_id"); err != nil {
		return
	}
	if filter.GradeID, err = queryInt(ctx, "grade_id"); err != nil {
		return
	}
	if filter.Date, err = queryDate(ctx, "date"); err != nil {
		return
	}
	if filter.From, filter.To, err = queryWindow(ctx); err != nil {
		return
	}

	switch {
	case filter.StudentID != 0:
		err = s.authorize(ctx, access.ActionRead, kind, access.OfStudent(filter.StudentID))
		return filter, err == nil, err
	case filter.GradeID != 0:
		err = s.authorize(ctx, access.ActionRead, kind, access.OfGrade(filter.GradeID))
		return filter, err == nil, err
	}

	p := getContextPrincipal(ctx)
	switch p.Role {
	case user.RoleAdmin:
		return filter, true, nil
	case user.RoleTeacher:
		grades, err := s.deps.SchoolSvc.TeacherGrades(ctx.Request().Context(), p.UserID)
		if err != nil {
			return filter, false, errors.Wrap(err, "getting teacher grades")
		}
		for _, grd := range grades {
			filter.GradeIDs = append(filter.GradeIDs, grd.ID)
		}
		return filter, len(filter.GradeIDs) > 0, nil
	case user.RoleStudent:
		if p.StudentID == nil || kind != access.KindAttendance {
			return filter, false, nil
		}
		filter.StudentID = *p.StudentID
		return filter, true, nil
	}
	return filter, false, errHTTPForbidden
}

func (api *attendanceAPI) query(ctx echo.Context) error {
	filter, ok, err := api.recordFilter(ctx, access.KindAttendance)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceAPI) submit(ctx echo.Context) error {
	var data attendance.BulkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkAttendance")
	}
	if err := api.authorizeGradeWrite(ctx, access.ActionCreate, access.KindAttendance, data.GradeID); err != nil {
		return err
	}
	records, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting attendance")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.ObserveSubmission("attendance", len(records))
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceAPI) queryUniforms(ctx echo.Context) error {
	filter, ok, err := api.recordFilter(ctx, access.KindUniform)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.JSON(http.StatusOK, []attendance.UniformRecord{})
	}
	records, err := api.svc.QueryUniforms(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying uniforms")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceAPI) submitUniforms(ctx echo.Context) error {
	var data attendance.BulkUniform
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUniform")
	}
	if err := api.authorizeGradeWrite(ctx, access.ActionCreate, access.KindUniform, data.GradeID); err != nil {
		return err
	}
	records, err := api.svc.SubmitUniforms(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting uniforms")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.ObserveSubmission("uniform", len(records))
	}
	return ctx.JSON(http.StatusOK, records)
}
