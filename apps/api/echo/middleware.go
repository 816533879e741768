package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/user"
)

// principalMiddleware stores the Principal of the JWT claims in the context.
// A token whose person has been deleted since it was issued is rejected.
func principalMiddleware(users *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := contextPrincipal(ctx)
			if err != nil {
				return err
			}
			if _, err = users.GetPerson(ctx.Request().Context(), p.Role, p.ID); err != nil {
				var nf *core.NotFoundError
				if errors.As(err, &nf) || errors.Is(err, user.ErrInvalidRole) {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting principal person")
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := contextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}
		if p.IsAdmin() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

func teacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := contextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}
		if p.IsTeacher() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// policyMiddleware passes when the principal passes any of checks on the resource of the `:id` path param.
func policyMiddleware(engine *policy.Engine, checks ...policy.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := contextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			id, err := pathID(ctx)
			if err != nil {
				return err
			}
			if err = engine.AuthorizeAny(ctx.Request().Context(), p, id, checks...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
