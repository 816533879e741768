package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
)

type subjectApi struct {
	svcs     *school.Services
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, opts *Options) {
	api := subjectApi{
		svcs:     opts.School,
		validate: opts.Validate,
	}
	canView := policyMiddleware(opts.Policy, policy.ManageSubject, policy.ViewSubject)

	sg := g.Group("/subjects")
	sg.GET("", api.query, adminMiddleware)
	sg.POST("", api.create, adminMiddleware)

	// detail endpoints
	sg.GET("/:id", api.retrieve, canView)
	sg.PUT("/:id", api.update, adminMiddleware)
	sg.DELETE("/:id", api.destroy, adminMiddleware)
	sg.GET("/:id/homeworks", api.homeworks, canView)
	sg.GET("/:id/grades", api.grades, policyMiddleware(opts.Policy, policy.ManageSubject))

	g.GET("/teachers/me/subjects", api.taught, teacherMiddleware)
}

// Handlers

func (api *subjectApi) query(ctx echo.Context) error {
	subjects, err := api.svcs.Subjects.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svcs.Subjects.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	s, err := api.svcs.Subjects.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svcs.Subjects.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svcs.Subjects.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *subjectApi) homeworks(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	homeworks, err := api.svcs.Homeworks.QueryBySubject(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying subject homeworks")
	}
	if homeworks == nil {
		homeworks = []school.Homework{}
	}
	return ctx.JSON(http.StatusOK, homeworks)
}

func (api *subjectApi) grades(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svcs.Grades.QueryForSubject(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying subject grades")
	}
	if grades == nil {
		grades = []school.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

// taught lists the subjects of the calling teacher.
func (api *subjectApi) taught(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	subjects, err := api.svcs.Subjects.QueryByTeacher(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying teacher subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}
