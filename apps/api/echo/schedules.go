package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/school"
)

type scheduleApi struct {
	svc      *school.ScheduleService
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, opts *Options) {
	api := scheduleApi{
		svc:      opts.School.Schedules,
		validate: opts.Validate,
	}

	sg := g.Group("/schedules", adminMiddleware)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *scheduleApi) query(ctx echo.Context) error {
	schedules, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if schedules == nil {
		schedules = []school.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data school.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
