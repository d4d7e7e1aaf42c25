package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusUnauthorized, "refresh has expired")
	errHTTPForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

func fieldErrors(flds []core.FieldError) map[string]string {
	res := make(map[string]string, len(flds))
	for _, fErr := range flds {
		res[fErr.Field] = fErr.Error
	}
	return res
}

// classify maps err onto a status code and a response body.
// The body is a field->message map for validation failures, a plain message otherwise.
func classify(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message
		}
		if inner, ok := e.Internal.(*echo.HTTPError); ok {
			e = inner
		}
		return e.Code, e.Message
	case validator.ValidationErrors:
		vErr := core.TranslateValidationErrors(e, translator).(*core.ValidationError)
		return http.StatusBadRequest, fieldErrors(vErr.Fields)
	case *core.ValidationError:
		if e.Fields != nil {
			return http.StatusBadRequest, fieldErrors(e.Fields)
		}
		return http.StatusBadRequest, e.Error()
	case *core.NotFoundError:
		return http.StatusNotFound, e.Error()
	case *core.ConflictError:
		return http.StatusConflict, e.Error()
	case *core.UnavailableError:
		return http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable)
	}

	switch cause {
	case access.ErrDenied:
		return http.StatusForbidden, errHTTPForbidden.Message
	case user.ErrInvalidCredentials:
		return http.StatusUnauthorized, cause.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler rendering errors as classified above.
// Server failures are logged with the caller, and signalShutdown is called on a core.shutdown error.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := classify(err, translator)

		switch {
		case code == http.StatusServiceUnavailable:
			logger.Error(errors.Cause(err).Error(), err)
		case code >= http.StatusInternalServerError:
			usr, _ := getContextUser(ctx)
			logger.Error("unhandled error", errors.Wrap(err, "handling "+ctx.Request().Method+" "+ctx.Path()), usr)
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
