package echoapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/user"
)

// principalMiddleware loads the user of the JWT claims & its access.Principal into the context.
// A token of a deleted user is rejected.
func principalMiddleware(usrSvc *user.Service, guard *access.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			id, err := claims.UserID()
			if err != nil {
				return errUnauthorized
			}

			reqCtx := ctx.Request().Context()
			usr, err := usrSvc.GetByID(reqCtx, id)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			p, err := guard.Principal(reqCtx, usr)
			if err != nil {
				return errors.Wrap(err, "building principal")
			}

			ctx.Set(contextUserKey, usr)
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// requestTimeoutMiddleware bounds the request context, hence the store calls it carries.
func requestTimeoutMiddleware(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if timeout <= 0 {
				return next(ctx)
			}
			reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), timeout)
			defer cancel()
			ctx.SetRequest(ctx.Request().WithContext(reqCtx))
			return next(ctx)
		}
	}
}

// authorize checks that the context principal may perform act on the resource of kind in scope.
func (s *server) authorize(ctx echo.Context, act access.Action, kind access.Kind, scope access.Scope) error {
	return s.deps.Guard.Authorize(ctx.Request().Context(), getContextPrincipal(ctx), act, kind, scope)
}

// allowed is authorize for list filtering.
func (s *server) allowed(ctx echo.Context, act access.Action, kind access.Kind, scope access.Scope) bool {
	return s.deps.Guard.Allowed(ctx.Request().Context(), getContextPrincipal(ctx), act, kind, scope)
}

// authorizeGradeWrite authorizes a write of kind on the rows of gradeID.
// An unset grade is left to the input validation, except for principals who cannot write at all.
func (s *server) authorizeGradeWrite(ctx echo.Context, act access.Action, kind access.Kind, gradeID int) error {
	if gradeID <= 0 {
		switch getContextPrincipal(ctx).Role {
		case user.RoleAdmin, user.RoleTeacher:
			return nil
		}
		return errors.Wrap(access.ErrDenied, "grade is required")
	}
	return s.authorize(ctx, act, kind, access.OfGrade(gradeID))
}
