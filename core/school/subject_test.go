package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	testutil "github.com/trezcool/shkola/tests"
)

func TestSubjectService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	c := app.CreateClass(t, "А", 6)

	s, err := app.School.Subjects.Create(ctx, school.NewSubject{
		Name:        "Математика",
		Type:        "Базовый",
		Description: "desc",
		ClassID:     &c.ID,
		TeacherID:   teacher.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)
	assert.NotEmpty(t, s.Code)

	// checked in order: class, teacher, name, code
	tests := []struct {
		name    string
		ns      school.NewSubject
		wantErr error
	}{
		{"unknown class and teacher", school.NewSubject{Name: "Физика", ClassID: intPtr(999), TeacherID: 999}, school.ErrClassNotFound},
		{"unknown teacher", school.NewSubject{Name: "Физика", ClassID: &c.ID, TeacherID: 999}, user.ErrTeacherNotFound},
		{"name taken in class", school.NewSubject{Name: "Математика", ClassID: &c.ID, TeacherID: teacher.ID, Code: s.Code}, school.ErrSubjectAlreadyExists},
		{"code taken", school.NewSubject{Name: "Физика", ClassID: &c.ID, TeacherID: teacher.ID, Code: s.Code}, school.ErrSubjectAlreadyExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.School.Subjects.Create(ctx, tc.ns)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("name free outside the class", func(t *testing.T) {
		_, err := app.School.Subjects.Create(ctx, school.NewSubject{Name: "Математика", TeacherID: teacher.ID})
		assert.NoError(t, err)
	})

	all, err := app.School.Subjects.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSubjectService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	t1 := app.CreateTeacher(t, "t1@shkola.test")
	t2 := app.CreateTeacher(t, "t2@shkola.test")
	c := app.CreateClass(t, "А", 6)
	math := app.CreateSubject(t, "Математика", t1.ID, &c.ID)
	physics := app.CreateSubject(t, "Физика", t1.ID, &c.ID)

	_, err := app.School.Subjects.Update(ctx, 999, school.UpdateSubject{Name: "Химия"})
	assert.ErrorIs(t, err, school.ErrSubjectNotFound)

	_, err = app.School.Subjects.Update(ctx, physics.ID, school.UpdateSubject{Name: "Математика"})
	assert.ErrorIs(t, err, school.ErrSubjectAlreadyExists)

	_, err = app.School.Subjects.Update(ctx, physics.ID, school.UpdateSubject{TeacherID: intPtr(999)})
	assert.ErrorIs(t, err, user.ErrTeacherNotFound)

	s, err := app.School.Subjects.Update(ctx, physics.ID, school.UpdateSubject{
		Name:        "Астрономия",
		Description: strPtr("stars"),
		TeacherID:   &t2.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Астрономия", s.Name)
	assert.Equal(t, "stars", s.Description)
	assert.Equal(t, t2.ID, s.TeacherID)
	assert.Equal(t, physics.Code, s.Code)

	byTeacher, err := app.School.Subjects.QueryByTeacher(ctx, t1.ID)
	require.NoError(t, err)
	require.Len(t, byTeacher, 1)
	assert.Equal(t, math.ID, byTeacher[0].ID)

	_, err = app.School.Subjects.QueryByTeacher(ctx, 999)
	assert.ErrorIs(t, err, user.ErrTeacherNotFound)
}

func TestSubjectService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	c := app.CreateClass(t, "А", 6)
	math := app.CreateSubject(t, "Математика", teacher.ID, &c.ID)
	physics := app.CreateSubject(t, "Физика", teacher.ID, &c.ID)

	for _, subjectID := range []int{math.ID, physics.ID} {
		_, err := app.School.Schedules.Create(ctx, school.NewSchedule{Day: 2, StartTime: "09:00", Classroom: 1, ClassID: c.ID, SubjectID: subjectID})
		require.NoError(t, err)
		_, err = app.School.Homeworks.Create(ctx, school.NewHomework{Title: "Задание", Deadline: "2024-09-10", ClassID: c.ID, SubjectID: subjectID})
		require.NoError(t, err)
		_, err = app.School.Grades.Create(ctx, school.NewGrade{Mark: 3, StudentID: student.ID, SubjectID: subjectID})
		require.NoError(t, err)
	}

	err := app.School.Subjects.Delete(ctx, 999)
	assert.ErrorIs(t, err, school.ErrSubjectNotFound)

	require.NoError(t, app.School.Subjects.Delete(ctx, math.ID))

	_, err = app.School.Subjects.GetByID(ctx, math.ID)
	assert.ErrorIs(t, err, school.ErrSubjectNotFound)

	schedules, err := app.School.Schedules.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, physics.ID, schedules[0].SubjectID)

	homeworks, err := app.School.Homeworks.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, homeworks, 1)
	assert.Equal(t, physics.ID, homeworks[0].SubjectID)

	grades, err := app.School.Grades.QueryForStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, physics.ID, grades[0].SubjectID)
}
