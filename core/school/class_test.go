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

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestClassService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	c, err := app.School.Classes.Create(ctx, school.NewClass{Letter: "А", Number: 6, Description: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, "6А", c.Name())

	got, err := app.School.Classes.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "А", got.Letter)
	assert.Equal(t, 6, got.Number)
	assert.Equal(t, "desc", got.Description)

	_, err = app.School.Classes.Create(ctx, school.NewClass{Letter: "А", Number: 6})
	assert.ErrorIs(t, err, school.ErrClassAlreadyExists)
	assert.EqualError(t, err, "class 6А already exists")

	// same letter, other number
	_, err = app.School.Classes.Create(ctx, school.NewClass{Letter: "А", Number: 7})
	assert.NoError(t, err)

	classes, err := app.School.Classes.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	_, err = app.School.Classes.GetByID(ctx, 999)
	assert.ErrorIs(t, err, school.ErrClassNotFound)
	assert.EqualError(t, err, "class with id 999 not found")
}

func TestClassService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	a6 := app.CreateClass(t, "А", 6)
	b6 := app.CreateClass(t, "Б", 6)

	tests := []struct {
		name    string
		id      int
		uc      school.UpdateClass
		want    school.Class
		wantErr error
	}{
		{name: "not found", id: 999, uc: school.UpdateClass{Letter: "В"}, wantErr: school.ErrClassNotFound},
		{name: "taken", id: b6.ID, uc: school.UpdateClass{Letter: "А"}, wantErr: school.ErrClassAlreadyExists},
		{name: "unchanged name", id: a6.ID, uc: school.UpdateClass{Letter: "А", Description: strPtr("main")},
			want: school.Class{ID: a6.ID, Letter: "А", Number: 6, Description: "main"}},
		{name: "renamed", id: b6.ID, uc: school.UpdateClass{Number: intPtr(7)},
			want: school.Class{ID: b6.ID, Letter: "Б", Number: 7}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := app.School.Classes.Update(ctx, tc.id, tc.uc)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.ID, c.ID)
			assert.Equal(t, tc.want.Letter, c.Letter)
			assert.Equal(t, tc.want.Number, c.Number)
			assert.Equal(t, tc.want.Description, c.Description)
		})
	}

	// the failed rename left the row untouched
	got, err := app.School.Classes.GetByID(ctx, b6.ID)
	require.NoError(t, err)
	assert.Equal(t, "7Б", got.Name())
}

func TestClassService_AddStudents(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	c := app.CreateClass(t, "А", 6)
	s1 := app.CreateStudent(t, "s1@shkola.test")
	s2 := app.CreateStudent(t, "s2@shkola.test")

	t.Run("unknown class", func(t *testing.T) {
		err := app.School.Classes.AddStudents(ctx, 999, []int{s1.ID})
		assert.ErrorIs(t, err, school.ErrClassNotFound)
	})

	t.Run("unknown student links nobody", func(t *testing.T) {
		err := app.School.Classes.AddStudents(ctx, c.ID, []int{s1.ID, 999, s2.ID})
		assert.ErrorIs(t, err, user.ErrStudentNotFound)
		assert.EqualError(t, err, "student with id 999 not found")

		students, err := app.School.Classes.Students(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	t.Run("all linked", func(t *testing.T) {
		require.NoError(t, app.School.Classes.AddStudents(ctx, c.ID, []int{s1.ID, s2.ID}))

		students, err := app.School.Classes.Students(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		for _, s := range students {
			require.NotNil(t, s.ClassID)
			assert.Equal(t, c.ID, *s.ClassID)
		}
	})

	t.Run("moved to another class", func(t *testing.T) {
		other := app.CreateClass(t, "Б", 6)
		require.NoError(t, app.School.Classes.AddStudents(ctx, other.ID, []int{s2.ID}))

		students, err := app.School.Classes.Students(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, s1.ID, students[0].ID)
	})
}

func TestClassService_AddSubjects(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	a6 := app.CreateClass(t, "А", 6)
	b6 := app.CreateClass(t, "Б", 6)
	mathA := app.CreateSubject(t, "Математика", teacher.ID, &a6.ID)
	mathB := app.CreateSubject(t, "Математика", teacher.ID, &b6.ID)
	physics := app.CreateSubject(t, "Физика", teacher.ID, nil)
	loose := app.CreateSubject(t, "Математика", teacher.ID, nil)

	t.Run("unknown subject", func(t *testing.T) {
		err := app.School.Classes.AddSubjects(ctx, a6.ID, []int{physics.ID, 999})
		assert.ErrorIs(t, err, school.ErrSubjectNotFound)
	})

	t.Run("name taken in class", func(t *testing.T) {
		err := app.School.Classes.AddSubjects(ctx, a6.ID, []int{physics.ID, mathB.ID})
		assert.ErrorIs(t, err, school.ErrSubjectAlreadyExists)
		assert.EqualError(t, err, `subject "Математика" in class 6А already exists`)
	})

	t.Run("duplicate names in batch", func(t *testing.T) {
		c := app.CreateClass(t, "В", 6)
		err := app.School.Classes.AddSubjects(ctx, c.ID, []int{mathB.ID, loose.ID})
		assert.ErrorIs(t, err, school.ErrSubjectAlreadyExists)
	})

	// none of the failed batches were applied
	subjects, err := app.School.Classes.Subjects(ctx, a6.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, mathA.ID, subjects[0].ID)

	t.Run("linked", func(t *testing.T) {
		require.NoError(t, app.School.Classes.AddSubjects(ctx, a6.ID, []int{physics.ID, mathA.ID}))

		subjects, err := app.School.Subjects.QueryByClass(ctx, a6.ID)
		require.NoError(t, err)
		assert.Len(t, subjects, 2)
	})
}

func TestClassService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	c := app.CreateClass(t, "А", 6)
	app.Enroll(t, c.ID, student.ID)
	subject := app.CreateSubject(t, "Математика", teacher.ID, &c.ID)

	_, err := app.School.Schedules.Create(ctx, school.NewSchedule{Day: 1, StartTime: "08:30", Classroom: 12, ClassID: c.ID, SubjectID: subject.ID})
	require.NoError(t, err)
	_, err = app.School.Homeworks.Create(ctx, school.NewHomework{Title: "№ 1-5", Deadline: "2024-09-10", ClassID: c.ID, SubjectID: subject.ID})
	require.NoError(t, err)
	grade, err := app.School.Grades.Create(ctx, school.NewGrade{Mark: 5, StudentID: student.ID, SubjectID: subject.ID})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		err := app.School.Classes.Delete(ctx, 999)
		assert.ErrorIs(t, err, school.ErrClassNotFound)

		classes, err := app.School.Classes.QueryAll(ctx)
		require.NoError(t, err)
		assert.Len(t, classes, 1)
	})

	require.NoError(t, app.School.Classes.Delete(ctx, c.ID))

	_, err = app.School.Classes.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, school.ErrClassNotFound)

	schedules, err := app.School.Schedules.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, schedules)
	homeworks, err := app.School.Homeworks.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, homeworks)

	// students, subjects and grades are kept
	s, err := app.Users.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, s.ClassID)
	subj, err := app.School.Subjects.GetByID(ctx, subject.ID)
	require.NoError(t, err)
	assert.Nil(t, subj.ClassID)
	_, err = app.School.Grades.GetByID(ctx, grade.ID)
	assert.NoError(t, err)

	// ids are never reused
	c2 := app.CreateClass(t, "А", 6)
	assert.Greater(t, c2.ID, c.ID)
}
