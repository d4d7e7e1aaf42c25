package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/setting"
)

type settingAPI struct {
	*server
	svc *setting.Service
}

func registerSettingAPI(authed *echo.Group, s *server) {
	api := settingAPI{server: s, svc: s.deps.SettingSvc}

	grp := authed.Group("/settings")
	grp.GET("", api.list)
	grp.GET("/attendance-window", api.attendanceWindow)
	grp.GET("/:key", api.retrieve)
	grp.PUT("/:key", api.update)
}

func (api *settingAPI) list(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead, access.KindSetting, access.All()); err != nil {
		return err
	}
	settings, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *settingAPI) attendanceWindow(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead, access.KindSetting, access.All()); err != nil {
		return err
	}
	w, err := api.svc.AttendanceWindow(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "getting attendance window")
	}
	return ctx.JSON(http.StatusOK, w)
}

func (api *settingAPI) retrieve(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead, access.KindSetting, access.All()); err != nil {
		return err
	}
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return errors.Wrap(err, "getting setting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingAPI) update(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionUpdate, access.KindSetting, access.All()); err != nil {
		return err
	}
	var data setting.UpdateSetting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSetting")
	}
	s, err := api.svc.Set(ctx.Request().Context(), ctx.Param("key"), data)
	if err != nil {
		return errors.Wrap(err, "updating setting")
	}
	return ctx.JSON(http.StatusOK, s)
}
