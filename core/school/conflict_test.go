package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
	inmemdb "github.com/trezcool/shkola/storage/database/inmem"
	testutil "github.com/trezcool/shkola/tests"
)

// blindClasses and blindSubjects hide existing rows from the uniqueness lookups,
// as if a concurrent write committed between the lookup and the insert.
type blindClasses struct {
	school.ClassRepository
}

func (blindClasses) GetClassByLetterAndNumber(context.Context, string, int) (school.Class, error) {
	return school.Class{}, core.ErrNoRecord
}

type blindSubjects struct {
	school.SubjectRepository
}

func (blindSubjects) FilterSubjects(context.Context, school.SubjectFilter) ([]school.Subject, error) {
	return nil, nil
}

func newBlindServices(app *testutil.App) *school.Services {
	repos := inmemdb.NewSchoolRepositories(app.DB)
	repos.Classes = blindClasses{repos.Classes}
	repos.Subjects = blindSubjects{repos.Subjects}
	return school.NewServices(app.DB, repos, app.Users, app.Mail, app.Logger)
}

func TestUniqueConstraint(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	svcs := newBlindServices(app)

	a6 := app.CreateClass(t, "А", 6)
	b6 := app.CreateClass(t, "Б", 6)
	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	math := app.CreateSubject(t, "Математика", teacher.ID, &a6.ID)

	t.Run("create class", func(t *testing.T) {
		_, err := svcs.Classes.Create(ctx, school.NewClass{Letter: "А", Number: 6})
		assert.ErrorIs(t, err, school.ErrClassAlreadyExists)
		assert.EqualError(t, err, "class 6А already exists")
	})

	t.Run("update class", func(t *testing.T) {
		_, err := svcs.Classes.Update(ctx, b6.ID, school.UpdateClass{Letter: "А"})
		assert.ErrorIs(t, err, school.ErrClassAlreadyExists)
		assert.EqualError(t, err, "class 6А already exists")

		got, err := app.School.Classes.GetByID(ctx, b6.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, "Б", got.Letter)
		}
	})

	t.Run("create subject: same code", func(t *testing.T) {
		_, err := svcs.Subjects.Create(ctx, school.NewSubject{Name: "Алгебра", Code: math.Code, TeacherID: teacher.ID})
		assert.ErrorIs(t, err, school.ErrSubjectAlreadyExists)
	})

	t.Run("create subject: same name in class", func(t *testing.T) {
		_, err := svcs.Subjects.Create(ctx, school.NewSubject{Name: "Математика", ClassID: &a6.ID, TeacherID: teacher.ID})
		assert.ErrorIs(t, err, school.ErrSubjectAlreadyExists)
	})

	subjects, err := app.School.Subjects.QueryAll(ctx)
	if assert.NoError(t, err) {
		assert.Len(t, subjects, 1)
	}
}
