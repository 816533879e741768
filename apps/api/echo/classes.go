package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
)

type classApi struct {
	svcs     *school.Services
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, opts *Options) {
	api := classApi{
		svcs:     opts.School,
		validate: opts.Validate,
	}
	canView := policyMiddleware(opts.Policy, policy.ViewClass)

	cg := g.Group("/classes")
	cg.GET("", api.query, adminMiddleware)
	cg.POST("", api.create, adminMiddleware)

	// detail endpoints
	cg.GET("/:id", api.retrieve, canView)
	cg.PUT("/:id", api.update, adminMiddleware)
	cg.DELETE("/:id", api.destroy, adminMiddleware)
	cg.GET("/:id/students", api.students, canView)
	cg.POST("/:id/students", api.addStudents, adminMiddleware)
	cg.GET("/:id/subjects", api.subjects, canView)
	cg.POST("/:id/subjects", api.addSubjects, adminMiddleware)
	cg.GET("/:id/schedules", api.schedules, canView)
	cg.GET("/:id/homeworks", api.homeworks, canView)
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	classes, err := api.svcs.Classes.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svcs.Classes.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svcs.Classes.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svcs.Classes.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svcs.Classes.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) students(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	students, err := api.svcs.Classes.Students(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying class students")
	}
	if students == nil {
		students = []user.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudents(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	ids, err := bindIDs(ctx, api.validate)
	if err != nil {
		return err
	}
	if err = api.svcs.Classes.AddStudents(ctx.Request().Context(), id, ids); err != nil {
		return errors.Wrap(err, "adding students to class")
	}
	return api.students(ctx)
}

func (api *classApi) subjects(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.svcs.Classes.Subjects(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying class subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *classApi) addSubjects(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	ids, err := bindIDs(ctx, api.validate)
	if err != nil {
		return err
	}
	if err = api.svcs.Classes.AddSubjects(ctx.Request().Context(), id, ids); err != nil {
		return errors.Wrap(err, "adding subjects to class")
	}
	return api.subjects(ctx)
}

func (api *classApi) schedules(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	schedules, err := api.svcs.Schedules.QueryByClass(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying class schedules")
	}
	if schedules == nil {
		schedules = []school.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}

// homeworks lists the homeworks of the class, of one of its subjects when `subject_id` is given.
func (api *classApi) homeworks(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	subjectID, ok, err := queryID(ctx, "subject_id")
	if err != nil {
		return err
	}

	var homeworks []school.Homework
	if ok {
		homeworks, err = api.svcs.Homeworks.QueryByClassAndSubject(ctx.Request().Context(), id, subjectID)
	} else {
		homeworks, err = api.svcs.Homeworks.QueryByClass(ctx.Request().Context(), id)
	}
	if err != nil {
		return errors.Wrap(err, "querying class homeworks")
	}
	if homeworks == nil {
		homeworks = []school.Homework{}
	}
	return ctx.JSON(http.StatusOK, homeworks)
}
