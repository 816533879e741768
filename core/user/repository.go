package user

import (
	"context"
)

// Repositories return core.ErrNoRecord when a lookup matches no row
// and core.ErrConflict when a write violates a unique constraint.
type (
	// PersonRepository stores one kind of person (admins, teachers or parents).
	PersonRepository interface {
		CreatePerson(ctx context.Context, p Person) (Person, error)
		QueryAllPersons(ctx context.Context) ([]Person, error)
		GetPersonByID(ctx context.Context, id int) (Person, error)
		UpdatePerson(ctx context.Context, p Person) (Person, error)
		DeletePerson(ctx context.Context, id int) error
	}

	StudentRepository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// FilterStudents applies AND operation on available StudentFilter fields.
		FilterStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// SetStudentsClass sets (or clears, when classID is nil) the class of the given students.
		SetStudentsClass(ctx context.Context, classID *int, ids ...int) error
		// ClearClass detaches every student of a class.
		ClearClass(ctx context.Context, classID int) error
		// SetStudentsParent sets (or clears, when parentID is nil) the parent of the given students.
		SetStudentsParent(ctx context.Context, parentID *int, ids ...int) error
		// ClearParent detaches every child of a parent.
		ClearParent(ctx context.Context, parentID int) error
		DeleteStudent(ctx context.Context, id int) error
	}

	// AppUserRepository stores the role pointer rows.
	AppUserRepository interface {
		CreateAppUser(ctx context.Context, au AppUser) (AppUser, error)
		GetAppUserByEmail(ctx context.Context, email string) (AppUser, error)
		UpdateAppUserEmail(ctx context.Context, id int, email string) error
		DeleteAppUser(ctx context.Context, id int) error
	}

	// Repositories groups the storage the user Service works with.
	Repositories struct {
		Admins   PersonRepository
		Teachers PersonRepository
		Parents  PersonRepository
		Students StudentRepository
		AppUsers AppUserRepository
	}
)

func (r Repositories) persons(role Role) PersonRepository {
	switch role {
	case RoleAdmin:
		return r.Admins
	case RoleTeacher:
		return r.Teachers
	case RoleParent:
		return r.Parents
	}
	return nil
}
