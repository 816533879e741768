package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
)

type gradeApi struct {
	svc      *school.GradeService
	policy   *policy.Engine
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, opts *Options) {
	api := gradeApi{
		svc:      opts.School.Grades,
		policy:   opts.Policy,
		validate: opts.Validate,
	}
	canManage := policyMiddleware(opts.Policy, policy.ManageGrade)

	gg := g.Group("/grades")
	gg.POST("", api.create)
	gg.GET("/:id", api.retrieve, canManage)
	gg.PUT("/:id", api.update, canManage)
	gg.DELETE("/:id", api.destroy, canManage)

	g.GET("/students/:id/grades", api.queryForStudent, policyMiddleware(opts.Policy, policy.ViewStudent))
}

// Handlers

// create records a grade in a subject taught by the caller (any subject for admins).
func (api *gradeApi) create(ctx echo.Context) error {
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
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

	grade, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	grade, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *gradeApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryForStudent lists the grades of a student, in one subject when `subject_id` is given.
func (api *gradeApi) queryForStudent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	subjectID, ok, err := queryID(ctx, "subject_id")
	if err != nil {
		return err
	}

	var grades []school.Grade
	if ok {
		grades, err = api.svc.QueryForStudentWithSubject(ctx.Request().Context(), id, subjectID)
	} else {
		grades, err = api.svc.QueryForStudent(ctx.Request().Context(), id)
	}
	if err != nil {
		return errors.Wrap(err, "querying student grades")
	}
	if grades == nil {
		grades = []school.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}
