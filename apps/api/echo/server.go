package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/projection"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/setting"
	"github.com/trezcool/asistencia/core/user"
	metricsvc "github.com/trezcool/asistencia/services/metrics"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Translator     ut.Translator
		Metrics        *metricsvc.Metrics // optional
		DisableReqLogs bool

		UserSvc       *user.Service
		SchoolSvc     *school.Service
		AttendanceSvc *attendance.Service
		ReportSvc     *report.Service
		SettingSvc    *setting.Service
		ProjectionSvc *projection.Service
		Guard         *access.Guard
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      *jwtConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(requestTimeoutMiddleware(conf.Server.RequestTimeout))

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	authed := api.Group("",
		middleware.JWTWithConfig(s.jwt.middlewareConfig()),
		principalMiddleware(s.deps.UserSvc, s.deps.Guard),
	)

	registerUserAPI(api, authed, s)
	registerSchoolAPI(authed, s)
	registerAttendanceAPI(authed, s)
	registerReportAPI(authed, s)
	registerProjectionAPI(authed, s)
	registerSettingAPI(authed, s)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
