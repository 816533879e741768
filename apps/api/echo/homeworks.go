package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
)

type homeworkApi struct {
	svc      *school.HomeworkService
	policy   *policy.Engine
	validate *validator.Validate
}

func registerHomeworkAPI(g *echo.Group, opts *Options) {
	api := homeworkApi{
		svc:      opts.School.Homeworks,
		policy:   opts.Policy,
		validate: opts.Validate,
	}
	canManage := policyMiddleware(opts.Policy, policy.ManageHomework)

	hg := g.Group("/homeworks")
	hg.POST("", api.create)
	hg.GET("/:id", api.retrieve, canManage)
	hg.PUT("/:id", api.update, canManage)
	hg.DELETE("/:id", api.destroy, canManage)
}

// Handlers

// create assigns a homework in a subject taught by the caller (any subject for admins).
func (api *homeworkApi) create(ctx echo.Context) error {
	var data school.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if err = api.policy.Authorize(ctx.Request().Context(), policy.ManageSubject, p, data.SubjectID); err != nil {
		return err
	}

	h, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating homework")
	}
	return ctx.JSON(http.StatusCreated, h)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	h, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting homework")
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateHomework
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	h, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return ctx.NoContent(http.StatusNoContent)
}
