package school_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core/school"
	testutil "github.com/trezcool/shkola/tests"
)

func TestHomeworkService(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	a6 := app.CreateClass(t, "А", 6)
	b6 := app.CreateClass(t, "Б", 6)
	math := app.CreateSubject(t, "Математика", teacher.ID, &a6.ID)
	physics := app.CreateSubject(t, "Физика", teacher.ID, &a6.ID)

	create := func(deadline string, classID, subjectID int) school.Homework {
		t.Helper()
		h, err := app.School.Homeworks.Create(ctx, school.NewHomework{
			Title: "Упражнения", Deadline: deadline, ClassID: classID, SubjectID: subjectID,
		})
		require.NoError(t, err)
		return h
	}
	h1 := create("2024-09-10", a6.ID, math.ID)
	h2 := create("2024-09-05", a6.ID, physics.ID)
	h3 := create("2024-09-07", b6.ID, math.ID)
	assert.Equal(t, time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC), h1.Deadline)

	t.Run("create checks class then subject", func(t *testing.T) {
		_, err := app.School.Homeworks.Create(ctx, school.NewHomework{Title: "x", Deadline: "2024-09-10", ClassID: 999, SubjectID: 999})
		assert.ErrorIs(t, err, school.ErrClassNotFound)
		_, err = app.School.Homeworks.Create(ctx, school.NewHomework{Title: "x", Deadline: "2024-09-10", ClassID: a6.ID, SubjectID: 999})
		assert.ErrorIs(t, err, school.ErrSubjectNotFound)
	})

	ids := func(hs []school.Homework) []int {
		res := make([]int, 0, len(hs))
		for _, h := range hs {
			res = append(res, h.ID)
		}
		return res
	}

	t.Run("queries", func(t *testing.T) {
		hs, err := app.School.Homeworks.QueryByClass(ctx, a6.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{h1.ID, h2.ID}, ids(hs))

		hs, err = app.School.Homeworks.QueryBySubject(ctx, math.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{h1.ID, h3.ID}, ids(hs))

		hs, err = app.School.Homeworks.QueryByClassAndSubject(ctx, b6.ID, math.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{h3.ID}, ids(hs))

		_, err = app.School.Homeworks.QueryByClassAndSubject(ctx, b6.ID, 999)
		assert.ErrorIs(t, err, school.ErrSubjectNotFound)
	})

	t.Run("update", func(t *testing.T) {
		h, err := app.School.Homeworks.Update(ctx, h2.ID, school.UpdateHomework{Deadline: "2024-09-06", Description: strPtr("стр. 12")})
		require.NoError(t, err)
		assert.Equal(t, "Упражнения", h.Title)
		assert.Equal(t, "стр. 12", h.Description)
		assert.Equal(t, time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC), h.Deadline)

		_, err = app.School.Homeworks.Update(ctx, 999, school.UpdateHomework{Title: "x"})
		assert.ErrorIs(t, err, school.ErrHomeworkNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		err := app.School.Homeworks.Delete(ctx, 999)
		assert.ErrorIs(t, err, school.ErrHomeworkNotFound)

		require.NoError(t, app.School.Homeworks.Delete(ctx, h3.ID))
		hs, err := app.School.Homeworks.QueryAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{h1.ID, h2.ID}, ids(hs))
	})
}
