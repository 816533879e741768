package inmemdb

import (
	"context"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
)

type personRepository struct {
	db *table[user.Person]
}

var _ user.PersonRepository = (*personRepository)(nil)

func NewAdminRepository(db *DB) user.PersonRepository   { return &personRepository{db: db.admins} }
func NewTeacherRepository(db *DB) user.PersonRepository { return &personRepository{db: db.teachers} }
func NewParentRepository(db *DB) user.PersonRepository  { return &personRepository{db: db.parents} }

// emailTaken must be called with the table locked.
func (repo *personRepository) emailTaken(p user.Person) bool {
	for _, row := range repo.db.rows {
		if row.Email == p.Email && row.ID != p.ID {
			return true
		}
	}
	return false
}

func (repo *personRepository) CreatePerson(_ context.Context, p user.Person) (user.Person, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(p) {
		return user.Person{}, core.ErrConflict
	}
	p.ID = repo.db.nextID()
	repo.db.rows[p.ID] = p
	return p, nil
}

func (repo *personRepository) QueryAllPersons(_ context.Context) ([]user.Person, error) {
	return repo.db.filter(nil), nil
}

func (repo *personRepository) GetPersonByID(_ context.Context, id int) (user.Person, error) {
	return repo.db.get(id)
}

func (repo *personRepository) UpdatePerson(_ context.Context, p user.Person) (user.Person, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[p.ID]
	if !ok {
		return user.Person{}, core.ErrNoRecord
	}
	if repo.emailTaken(p) {
		return user.Person{}, core.ErrConflict
	}
	if p.PasswordHash == nil {
		p.PasswordHash = orig.PasswordHash
	}
	p.CreatedAt = orig.CreatedAt
	repo.db.rows[p.ID] = p
	return p, nil
}

func (repo *personRepository) DeletePerson(_ context.Context, id int) error {
	return repo.db.delete(id)
}

type studentRepository struct {
	db *table[user.Student]
}

var _ user.StudentRepository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) user.StudentRepository {
	return &studentRepository{db: db.students}
}

func (repo *studentRepository) emailTaken(s user.Student) bool {
	for _, row := range repo.db.rows {
		if row.Email == s.Email && row.ID != s.ID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CreateStudent(_ context.Context, s user.Student) (user.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(s) {
		return user.Student{}, core.ErrConflict
	}
	s.ID = repo.db.nextID()
	s.ClassID = copyIntPtr(s.ClassID)
	s.ParentID = copyIntPtr(s.ParentID)
	repo.db.rows[s.ID] = s
	return s, nil
}

func (repo *studentRepository) FilterStudents(_ context.Context, filter user.StudentFilter) ([]user.Student, error) {
	return repo.db.filter(func(s user.Student) bool {
		if filter.ClassID != nil && !intPtrEqual(s.ClassID, filter.ClassID) {
			return false
		}
		if filter.ParentID != nil && !intPtrEqual(s.ParentID, filter.ParentID) {
			return false
		}
		return true
	}), nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int) (user.Student, error) {
	return repo.db.get(id)
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s user.Student) (user.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[s.ID]
	if !ok {
		return user.Student{}, core.ErrNoRecord
	}
	if repo.emailTaken(s) {
		return user.Student{}, core.ErrConflict
	}
	if s.PasswordHash == nil {
		s.PasswordHash = orig.PasswordHash
	}
	s.CreatedAt = orig.CreatedAt
	s.ClassID = copyIntPtr(s.ClassID)
	s.ParentID = copyIntPtr(s.ParentID)
	repo.db.rows[s.ID] = s
	return s, nil
}

func inIDs(ids []int) func(id int) bool {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id int) bool {
		_, ok := set[id]
		return ok
	}
}

func (repo *studentRepository) SetStudentsClass(_ context.Context, classID *int, ids ...int) error {
	in := inIDs(ids)
	repo.db.update(
		func(s user.Student) bool { return in(s.ID) },
		func(s *user.Student) { s.ClassID = copyIntPtr(classID) },
	)
	return nil
}

func (repo *studentRepository) ClearClass(_ context.Context, classID int) error {
	repo.db.update(
		func(s user.Student) bool { return s.ClassID != nil && *s.ClassID == classID },
		func(s *user.Student) { s.ClassID = nil },
	)
	return nil
}

func (repo *studentRepository) SetStudentsParent(_ context.Context, parentID *int, ids ...int) error {
	in := inIDs(ids)
	repo.db.update(
		func(s user.Student) bool { return in(s.ID) },
		func(s *user.Student) { s.ParentID = copyIntPtr(parentID) },
	)
	return nil
}

func (repo *studentRepository) ClearParent(_ context.Context, parentID int) error {
	repo.db.update(
		func(s user.Student) bool { return s.ParentID != nil && *s.ParentID == parentID },
		func(s *user.Student) { s.ParentID = nil },
	)
	return nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) error {
	return repo.db.delete(id)
}

type appUserRepository struct {
	db *table[user.AppUser]
}

var _ user.AppUserRepository = (*appUserRepository)(nil)

func NewAppUserRepository(db *DB) user.AppUserRepository {
	return &appUserRepository{db: db.appUsers}
}

func (repo *appUserRepository) CreateAppUser(_ context.Context, au user.AppUser) (user.AppUser, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.rows {
		if row.Email == au.Email || (row.Role == au.Role && row.UserID == au.UserID) {
			return user.AppUser{}, core.ErrConflict
		}
	}
	au.ID = repo.db.nextID()
	repo.db.rows[au.ID] = au
	return au, nil
}

func (repo *appUserRepository) GetAppUserByEmail(_ context.Context, email string) (user.AppUser, error) {
	return repo.db.find(func(au user.AppUser) bool { return au.Email == email })
}

func (repo *appUserRepository) UpdateAppUserEmail(_ context.Context, id int, email string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	au, ok := repo.db.rows[id]
	if !ok {
		return core.ErrNoRecord
	}
	for _, row := range repo.db.rows {
		if row.Email == email && row.ID != id {
			return core.ErrConflict
		}
	}
	au.Email = email
	repo.db.rows[id] = au
	return nil
}

func (repo *appUserRepository) DeleteAppUser(_ context.Context, id int) error {
	return repo.db.delete(id)
}

// NewUserRepositories returns the user repositories over db.
func NewUserRepositories(db *DB) user.Repositories {
	return user.Repositories{
		Admins:   NewAdminRepository(db),
		Teachers: NewTeacherRepository(db),
		Parents:  NewParentRepository(db),
		Students: NewStudentRepository(db),
		AppUsers: NewAppUserRepository(db),
	}
}
