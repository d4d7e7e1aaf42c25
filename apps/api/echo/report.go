package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/user"
)

type reportAPI struct {
	*server
	svc *report.Service
}

func registerReportAPI(authed *echo.Group, s *server) {
	api := reportAPI{server: s, svc: s.deps.ReportSvc}

	authed.GET("/reports", api.query)
	authed.POST("/reports", api.create)
	authed.GET("/reports/:id", api.retrieve)
}

// reportFilter narrows the listing to the reports the principal may read.
// Students get their own reports plus the broadcasts to their grade.
func (api *reportAPI) reportFilter(ctx echo.Context) (filter report.QueryFilter, ok bool, err error) {
	if filter.StudentID, err = queryInt(ctx, "student_id"); err != nil {
		return
	}
	if filter.GradeID, err = queryInt(ctx, "grade_id"); err != nil {
		return
	}

	p := getContextPrincipal(ctx)
	if p.Role == user.RoleStudent {
		if p.StudentID == nil {
			return filter, false, nil
		}
		if filter.StudentID != 0 && filter.StudentID != *p.StudentID {
			return filter, false, errors.Wrap(access.ErrDenied, "reading reports of another student")
		}
		filter.StudentID = *p.StudentID
		filter.GradeID = *p.GradeID
		filter.Audience = true
		return filter, true, nil
	}

	switch {
	case filter.StudentID != 0:
		err = api.authorize(ctx, access.ActionRead, access.KindReport, access.OfStudent(filter.StudentID))
		return filter, err == nil, err
	case filter.GradeID != 0:
		err = api.authorize(ctx, access.ActionRead, access.KindReport, access.OfGrade(filter.GradeID))
		return filter, err == nil, err
	case p.Role == user.RoleAdmin:
		return filter, true, nil
	}

	grades, err := api.deps.SchoolSvc.TeacherGrades(ctx.Request().Context(), p.UserID)
	if err != nil {
		return filter, false, errors.Wrap(err, "getting teacher grades")
	}
	for _, grd := range grades {
		filter.GradeIDs = append(filter.GradeIDs, grd.ID)
	}
	return filter, len(filter.GradeIDs) > 0, nil
}

func (api *reportAPI) query(ctx echo.Context) error {
	filter, ok, err := api.reportFilter(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.JSON(http.StatusOK, []report.Report{})
	}
	reps, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	return ctx.JSON(http.StatusOK, reps)
}

func (api *reportAPI) create(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}

	var err error
	switch {
	case data.StudentID != nil && *data.StudentID > 0:
		err = api.authorize(ctx, access.ActionCreate, access.KindReport, access.OfStudent(*data.StudentID))
	case data.AllStudents && data.GradeID != nil && *data.GradeID > 0:
		err = api.authorize(ctx, access.ActionCreate, access.KindReport, access.OfGrade(*data.GradeID))
	default:
		// no audience: fails validation unless the principal cannot write reports at all
		err = api.authorizeGradeWrite(ctx, access.ActionCreate, access.KindReport, 0)
	}
	if err != nil {
		return err
	}

	rep, err := api.svc.Compose(ctx.Request().Context(), getContextPrincipal(ctx).UserID, data)
	if err != nil {
		return errors.Wrap(err, "composing report")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.ObserveReport(string(rep.Type))
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *reportAPI) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.authorize(ctx, access.ActionRead, access.KindReport, access.ByID(id)); err != nil {
		return err
	}
	rep, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
