package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/user"
)

// personKinds maps the `/users/<kind>` collections to their role.
var personKinds = map[string]user.Role{
	"admins":   user.RoleAdmin,
	"teachers": user.RoleTeacher,
	"parents":  user.RoleParent,
	"students": user.RoleStudent,
}

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, opts *Options) {
	api := userApi{
		svc:      opts.Users,
		validate: opts.Validate,
	}

	ug := g.Group("/users", adminMiddleware)
	for kind, role := range personKinds {
		ug.GET("/"+kind, api.query(role))
		ug.POST("/"+kind, api.create(role))
		ug.GET("/"+kind+"/:id", api.retrieve(role))
	}
	ug.PUT("/by-email/:email", api.update)
	ug.DELETE("/by-email/:email", api.destroy)
}

// Handlers

func (api *userApi) query(role user.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if role == user.RoleStudent {
			students, err := api.svc.QueryStudents(ctx.Request().Context(), user.StudentFilter{})
			if err != nil {
				return errors.Wrap(err, "querying students")
			}
			if students == nil {
				students = []user.Student{}
			}
			return ctx.JSON(http.StatusOK, students)
		}

		persons, err := api.svc.QueryPersons(ctx.Request().Context(), role)
		if err != nil {
			return errors.Wrap(err, "querying persons")
		}
		if persons == nil {
			persons = []user.Person{}
		}
		return ctx.JSON(http.StatusOK, persons)
	}
}

func (api *userApi) create(role user.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx := ctx.Request().Context()

		if role == user.RoleParent {
			var data user.NewParent
			if err := ctx.Bind(&data); err != nil {
				return errors.Wrap(err, "binding to NewParent")
			}
			if err := data.Validate(api.validate); err != nil {
				return err
			}
			p, err := api.svc.RegisterParent(reqCtx, data)
			if err != nil {
				return errors.Wrap(err, "registering parent")
			}
			return ctx.JSON(http.StatusCreated, p)
		}

		var data user.NewPerson
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewPerson")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		var (
			obj interface{}
			err error
		)
		switch role {
		case user.RoleAdmin:
			obj, err = api.svc.RegisterAdmin(reqCtx, data)
		case user.RoleTeacher:
			obj, err = api.svc.RegisterTeacher(reqCtx, data)
		case user.RoleStudent:
			obj, err = api.svc.RegisterStudent(reqCtx, data)
		default:
			return errors.Wrapf(user.ErrInvalidRole, "registering %s", role)
		}
		if err != nil {
			return errors.Wrapf(err, "registering %s", role)
		}
		return ctx.JSON(http.StatusCreated, obj)
	}
}

func (api *userApi) retrieve(role user.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := pathID(ctx)
		if err != nil {
			return err
		}

		if role == user.RoleStudent {
			s, err := api.svc.GetStudent(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "getting student")
			}
			return ctx.JSON(http.StatusOK, s)
		}

		p, err := api.svc.GetPerson(ctx.Request().Context(), role, id)
		if err != nil {
			return errors.Wrapf(err, "getting %s", role)
		}
		return ctx.JSON(http.StatusOK, p)
	}
}

func (api *userApi) update(ctx echo.Context) error {
	var data user.UpdatePerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePerson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.UpdateByEmail(ctx.Request().Context(), emailParam(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating person")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *userApi) destroy(ctx echo.Context) error {
	email := emailParam(ctx)

	// Say No to Suicide! ctxUser cannot delete themselves
	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if p.Email == email {
		return errHttpForbidden
	}

	if err := api.svc.DeleteByEmail(ctx.Request().Context(), email); err != nil {
		return errors.Wrap(err, "deleting person")
	}
	return ctx.NoContent(http.StatusNoContent)
}
