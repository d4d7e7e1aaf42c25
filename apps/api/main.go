package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/trezcool/asistencia/apps/api/echo"
	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/projection"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/setting"
	"github.com/trezcool/asistencia/core/user"
	"github.com/trezcool/asistencia/services/email"
	"github.com/trezcool/asistencia/services/logger"
	"github.com/trezcool/asistencia/services/metrics"
	"github.com/trezcool/asistencia/services/scheduler"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up storage
	st, err := openStores(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close storage", err)
		}
	}()

	// set up services
	tmpls, err := core.ParseEmailTemplates(conf.AppName, conf.FrontendBaseURL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	var mailSvc emailsvc.Service
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(tmpls, conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(tmpls, conf, logger)
	}

	validate, translator := core.NewValidator()
	usrSvc := user.NewService(st.users, st.tokens, mailSvc, validate, translator, conf.PasswordResetTimeoutDelta)
	schoolSvc := school.NewService(st.school, st.users, validate, translator)
	attSvc := attendance.NewService(st.attendance, schoolSvc, validate, translator)
	reportSvc := report.NewService(st.reports, schoolSvc, mailSvc, logger)
	settingSvc := setting.NewService(st.settings, validate, translator)
	projSvc := projection.NewService(attSvc, schoolSvc)
	guard := access.NewGuard(schoolSvc, reportSvc)
	metrics := metricsvc.New()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, storage %q, tokens %q", conf.Build, conf.Storage, conf.TokenStore))
	defer logger.Info("Application stopped")

	sched := schedulersvc.New(logger, conf.Server.RequestTimeout)
	if err = sched.AddTokenPurge(conf.TokenPurgeSchedule, usrSvc, metrics); err != nil {
		logger.Fatal(fmt.Sprintf("scheduling jobs: %v", err), err)
	}
	sched.Start()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Translator:    translator,
		Metrics:       metrics,
		UserSvc:       usrSvc,
		SchoolSvc:     schoolSvc,
		AttendanceSvc: attSvc,
		ReportSvc:     reportSvc,
		SettingSvc:    settingSvc,
		ProjectionSvc: projSvc,
		Guard:         guard,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = sched.Stop(ctx); err != nil {
		logger.Error("could not stop scheduler", err)
	}
	// asking listener to shut down and shed load
	if err = server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
	// emails are best effort: the ones still queued past the deadline are dropped
	if err = mailSvc.Drain(ctx); err != nil {
		logger.Warn(fmt.Sprintf("dropping queued emails: %v", err), err)
	}
}
