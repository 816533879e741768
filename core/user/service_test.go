package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	emailsvc "github.com/trezcool/shkola/services/email"
	inmemdb "github.com/trezcool/shkola/storage/database/inmem"
	testutil "github.com/trezcool/shkola/tests"
)

func newPerson(email string) user.NewPerson {
	return user.NewPerson{
		Firstname:       "Ivan",
		Lastname:        "Kuznetsov",
		Email:           email,
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}
}

func TestService_Register(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin, err := app.Users.RegisterAdmin(ctx, newPerson("admin@shkola.test"))
	require.NoError(t, err)
	assert.NotZero(t, admin.ID)
	assert.False(t, admin.CreatedAt.IsZero())
	assert.NoError(t, admin.CheckPassword(testutil.Password))

	acc, err := app.Users.Resolve(ctx, "Admin@Shkola.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, acc.Role)
	assert.Equal(t, admin.ID, acc.Person.ID)
	assert.Nil(t, acc.Student)

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@shkola.test", sent[0].To[0].Address)
	assert.Equal(t, "welcome", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Kuznetsov Ivan")
	assert.Contains(t, sent[0].TextContent, "Admin")

	// every kind shares the same email namespace
	tests := []struct {
		name     string
		register func(np user.NewPerson) error
	}{
		{"teacher", func(np user.NewPerson) error { _, err := app.Users.RegisterTeacher(ctx, np); return err }},
		{"student", func(np user.NewPerson) error { _, err := app.Users.RegisterStudent(ctx, np); return err }},
		{"parent", func(np user.NewPerson) error {
			_, err := app.Users.RegisterParent(ctx, user.NewParent{NewPerson: np})
			return err
		}},
		{"admin", func(np user.NewPerson) error { _, err := app.Users.RegisterAdmin(ctx, np); return err }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.register(newPerson("admin@shkola.test"))
			assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
		})
	}
	assert.Len(t, emailsvc.GetSentMessages(), 1)
}

func TestService_RegisterStudent(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	s, err := app.Users.RegisterStudent(ctx, newPerson("student@shkola.test"))
	require.NoError(t, err)
	assert.Nil(t, s.ClassID)
	assert.Nil(t, s.ParentID)

	acc, err := app.Users.Resolve(ctx, "student@shkola.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, acc.Role)
	require.NotNil(t, acc.Student)
	assert.Equal(t, s.ID, acc.Student.ID)
	assert.Equal(t, user.StudentPrincipal(s.ID).Role, acc.Principal().Role)
}

func TestService_RegisterParent(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	s1 := app.CreateStudent(t, "s1@shkola.test")
	s2 := app.CreateStudent(t, "s2@shkola.test")

	t.Run("unknown student", func(t *testing.T) {
		_, err := app.Users.RegisterParent(ctx, user.NewParent{
			NewPerson:  newPerson("p1@shkola.test"),
			StudentIDs: []int{s1.ID, 999, 998},
		})
		assert.ErrorIs(t, err, user.ErrStudentNotFound)
		assert.EqualError(t, err, "student with id 999 not found")

		// nothing written
		_, err = app.Users.Resolve(ctx, "p1@shkola.test")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		s, err := app.Users.GetStudent(ctx, s1.ID)
		require.NoError(t, err)
		assert.Nil(t, s.ParentID)
	})

	t.Run("links children", func(t *testing.T) {
		p, err := app.Users.RegisterParent(ctx, user.NewParent{
			NewPerson:  newPerson("p1@shkola.test"),
			StudentIDs: []int{s1.ID, s2.ID, s1.ID},
		})
		require.NoError(t, err)

		children, err := app.Users.ChildrenOf(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, s1.ID, children[0].ID)
		assert.Equal(t, s2.ID, children[1].ID)
	})

	t.Run("children of unknown parent", func(t *testing.T) {
		_, err := app.Users.ChildrenOf(ctx, 999)
		assert.ErrorIs(t, err, user.ErrParentNotFound)
	})
}

func TestService_Authenticate(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")

	tests := []struct {
		name    string
		email   string
		pwd     string
		want    user.Principal
		wantErr error
	}{
		{name: "valid", email: "teacher@shkola.test", pwd: testutil.Password,
			want: user.Principal{Role: user.RoleTeacher, ID: teacher.ID, Email: "teacher@shkola.test"}},
		{name: "email is not case sensitive", email: " TEACHER@shkola.test ", pwd: testutil.Password,
			want: user.Principal{Role: user.RoleTeacher, ID: teacher.ID, Email: "teacher@shkola.test"}},
		{name: "wrong password", email: "teacher@shkola.test", pwd: "Wrong-passw0rd", wantErr: user.ErrAuthenticationFailed},
		{name: "unknown email", email: "nobody@shkola.test", pwd: testutil.Password, wantErr: user.ErrAuthenticationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := app.Users.Authenticate(ctx, tc.email, tc.pwd)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestService_GetPerson(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := app.CreateAdmin(t, "admin@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")

	p, err := app.Users.GetPerson(ctx, user.RoleAdmin, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.Email, p.Email)

	p, err = app.Users.GetPerson(ctx, user.RoleStudent, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Email, p.Email)

	// ids are per kind
	_, err = app.Users.GetPerson(ctx, user.RoleTeacher, admin.ID)
	assert.ErrorIs(t, err, user.ErrTeacherNotFound)

	_, err = app.Users.GetPerson(ctx, user.Role("JANITOR"), 1)
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	admins, err := app.Users.QueryPersons(ctx, user.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestService_UpdateByEmail(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	app.CreateTeacher(t, "teacher@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")

	t.Run("unknown email", func(t *testing.T) {
		_, err := app.Users.UpdateByEmail(ctx, "nobody@shkola.test", user.UpdatePerson{Firstname: "X"})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("email taken by another kind", func(t *testing.T) {
		_, err := app.Users.UpdateByEmail(ctx, "student@shkola.test", user.UpdatePerson{Email: "teacher@shkola.test"})
		assert.ErrorIs(t, err, user.ErrUserAlreadyExists)

		acc, err := app.Users.Resolve(ctx, "student@shkola.test")
		require.NoError(t, err)
		assert.Equal(t, "student@shkola.test", acc.Person.Email)
	})

	t.Run("email change moves the pointer row", func(t *testing.T) {
		patronymic := "Sergeevna"
		acc, err := app.Users.UpdateByEmail(ctx, "student@shkola.test", user.UpdatePerson{
			Firstname:  "Olga",
			Patronymic: &patronymic,
			Email:      "olga@shkola.test",
		})
		require.NoError(t, err)
		assert.Equal(t, "Olga", acc.Person.Firstname)
		assert.Equal(t, "Sergeevna", acc.Person.Patronymic)
		require.NotNil(t, acc.Student)
		assert.Equal(t, student.ID, acc.Student.ID)

		_, err = app.Users.Resolve(ctx, "student@shkola.test")
		assert.ErrorIs(t, err, user.ErrUserNotFound)

		acc, err = app.Users.Resolve(ctx, "olga@shkola.test")
		require.NoError(t, err)
		assert.Equal(t, student.ID, acc.Person.ID)
		assert.Equal(t, "olga@shkola.test", acc.Person.Email)
		assert.NoError(t, acc.Person.CheckPassword(testutil.Password))
	})

	t.Run("reset password", func(t *testing.T) {
		require.NoError(t, app.Users.ResetPassword(ctx, "teacher@shkola.test", "N0vyi-Parol!"))

		_, err := app.Users.Authenticate(ctx, "teacher@shkola.test", testutil.Password)
		assert.ErrorIs(t, err, user.ErrAuthenticationFailed)
		_, err = app.Users.Authenticate(ctx, "teacher@shkola.test", "N0vyi-Parol!")
		assert.NoError(t, err)
	})
}

func TestService_DeleteByEmail(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	teacher := app.CreateTeacher(t, "teacher@shkola.test")
	student := app.CreateStudent(t, "student@shkola.test")
	parent := app.CreateParent(t, "parent@shkola.test", student.ID)
	class := app.CreateClass(t, "А", 6)
	app.Enroll(t, class.ID, student.ID)
	subject := app.CreateSubject(t, "Math", teacher.ID, &class.ID)

	_, err := app.School.Grades.Create(ctx, school.NewGrade{Mark: 5, StudentID: student.ID, SubjectID: subject.ID})
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		err := app.Users.DeleteByEmail(ctx, "nobody@shkola.test")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("parent", func(t *testing.T) {
		require.NoError(t, app.Users.DeleteByEmail(ctx, "parent@shkola.test"))

		_, err := app.Users.GetPerson(ctx, user.RoleParent, parent.ID)
		assert.ErrorIs(t, err, user.ErrParentNotFound)
		s, err := app.Users.GetStudent(ctx, student.ID)
		require.NoError(t, err)
		assert.Nil(t, s.ParentID)

		// the email is free again
		_, err = app.Users.RegisterAdmin(ctx, newPerson("parent@shkola.test"))
		assert.NoError(t, err)
	})

	t.Run("student", func(t *testing.T) {
		require.NoError(t, app.Users.DeleteByEmail(ctx, "student@shkola.test"))

		_, err := app.Users.GetStudent(ctx, student.ID)
		assert.ErrorIs(t, err, user.ErrStudentNotFound)
		grades, err := app.School.Grades.QueryAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, grades)
	})

	t.Run("teacher", func(t *testing.T) {
		require.NoError(t, app.Users.DeleteByEmail(ctx, "teacher@shkola.test"))

		_, err := app.Users.Resolve(ctx, "teacher@shkola.test")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		_, err = app.School.Subjects.GetByID(ctx, subject.ID)
		assert.ErrorIs(t, err, school.ErrSubjectNotFound)
	})
}

// A failing welcome email rolls the registration back.
func TestService_RegisterNotificationFailure(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	failing := user.NewService(app.DB, inmemdb.NewUserRepositories(app.DB), failingMail{}, app.Logger)
	_, err := failing.RegisterTeacher(ctx, newPerson("teacher@shkola.test"))
	var nErr *core.NotificationError
	assert.ErrorAs(t, err, &nErr)

	_, err = app.Users.Resolve(ctx, "teacher@shkola.test")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	teachers, err := app.Users.QueryPersons(ctx, user.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, teachers)
}

type failingMail struct{}

func (failingMail) SendMessages(...*core.EmailMessage) error {
	return &core.NotificationError{Err: assert.AnError}
}

// blindAppUsers never finds an email, as if a concurrent registration committed
// between the availability check and the insert.
type blindAppUsers struct {
	user.AppUserRepository
}

func (blindAppUsers) GetAppUserByEmail(context.Context, string) (user.AppUser, error) {
	return user.AppUser{}, core.ErrNoRecord
}

func TestService_Register_uniqueConstraint(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	app.CreateTeacher(t, "teacher@shkola.test")

	repos := inmemdb.NewUserRepositories(app.DB)
	repos.AppUsers = blindAppUsers{repos.AppUsers}
	svc := user.NewService(app.DB, repos, app.Mail, app.Logger)

	t.Run("same role", func(t *testing.T) {
		_, err := svc.RegisterTeacher(ctx, newPerson("teacher@shkola.test"))
		assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
		assert.EqualError(t, err, "user with email teacher@shkola.test already exists")
	})

	t.Run("other role", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		_, err := svc.RegisterAdmin(ctx, newPerson("teacher@shkola.test"))
		assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
		assert.EqualError(t, err, "user with email teacher@shkola.test already exists")

		// the admin row is rolled back with the pointer row
		admins, err := app.Users.QueryPersons(ctx, user.RoleAdmin)
		require.NoError(t, err)
		assert.Empty(t, admins)
		assert.Empty(t, emailsvc.GetSentMessages())
	})
}
