package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/user"
)

func TestClassify(t *testing.T) {
	validate, translator := core.NewValidator()
	type payload struct {
		Name string `json:"name" validate:"required"`
	}
	vErrs := validate.Struct(payload{})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
	}{
		{
			name:     "echo error",
			err:      echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"),
			wantCode: http.StatusMethodNotAllowed,
			wantBody: "nope",
		},
		{
			name:     "wrapped echo error",
			err:      &echo.HTTPError{Code: http.StatusBadRequest, Message: "bad", Internal: errHTTPNotFound},
			wantCode: http.StatusNotFound,
			wantBody: "not found",
		},
		{
			name:     "missing jwt",
			err:      middleware.ErrJWTMissing,
			wantCode: http.StatusUnauthorized,
			wantBody: middleware.ErrJWTMissing.Message,
		},
		{
			name:     "validator errors",
			err:      vErrs,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"name": "this field is required"},
		},
		{
			name:     "field errors",
			err:      core.NewValidationError(nil, core.FieldError{Field: "date", Error: "not a school day"}),
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"date": "not a school day"},
		},
		{
			name:     "plain validation error",
			err:      errors.Wrap(core.NewValidationError(errors.New("outside the attendance window")), "submitting"),
			wantCode: http.StatusBadRequest,
			wantBody: "outside the attendance window",
		},
		{
			name:     "not found",
			err:      core.NewNotFoundError("student not found"),
			wantCode: http.StatusNotFound,
			wantBody: "student not found",
		},
		{
			name:     "conflict",
			err:      core.NewConflictError("grade in use"),
			wantCode: http.StatusConflict,
			wantBody: "grade in use",
		},
		{
			name:     "unavailable store",
			err:      core.NewUnavailableError(errors.New("dial tcp: refused")),
			wantCode: http.StatusServiceUnavailable,
			wantBody: "Service Unavailable",
		},
		{
			name:     "denied",
			err:      errors.WithStack(access.ErrDenied),
			wantCode: http.StatusForbidden,
			wantBody: "permission denied",
		},
		{
			name:     "invalid credentials",
			err:      user.ErrInvalidCredentials,
			wantCode: http.StatusUnauthorized,
			wantBody: user.ErrInvalidCredentials.Error(),
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "Internal Server Error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := classify(tc.err, translator)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantBody, body)
		})
	}
}
