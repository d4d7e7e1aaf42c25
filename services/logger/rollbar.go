package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
)

type level struct {
	tag    string
	report func(...interface{})
}

var (
	levelDebug = level{"DEBUG", rollbar.Debug}
	levelInfo  = level{"INFO", rollbar.Info}
	levelWarn  = level{"WARN", rollbar.Warning}
	levelError = level{"ERROR", rollbar.Error}
	levelFatal = level{"FATAL", rollbar.Critical}
)

// RollbarLogger reports entries to Rollbar and mirrors them to a std logger.
// Args may hold an error, a map[string]interface{} of extras and the user.User behind the entry.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the Rollbar client from conf.
// Reporting is off without a token or in test mode; debug entries are dropped unless conf.Debug.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// Close waits for the queued reports to be sent.
func (l *RollbarLogger) Close() {
	rollbar.Wait()
}

// splitPerson pulls the first user.User out of args; any other user is dropped.
func splitPerson(args []interface{}) (rest []interface{}, person *user.User) {
	rest = make([]interface{}, 0, len(args))
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			rest = append(rest, arg)
			continue
		}
		if person == nil {
			person = &usr
		}
	}
	return rest, person
}

func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	rest, person := splitPerson(args)

	if person != nil {
		rollbar.SetPerson(strconv.Itoa(person.ID), person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	lvl.report(append([]interface{}{msg}, rest...)...)

	l.std.Printf("[%s] %s", lvl.tag, msg)
	for _, arg := range rest {
		l.std.Printf("  %+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.log(levelDebug, msg, args)
	}
}

func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
