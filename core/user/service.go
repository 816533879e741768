package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrUserNotFound    = core.NewNotFoundError("user", "", nil)
	ErrAdminNotFound   = core.NewNotFoundError("admin", "", nil)
	ErrTeacherNotFound = core.NewNotFoundError("teacher", "", nil)
	ErrStudentNotFound = core.NewNotFoundError("student", "", nil)
	ErrParentNotFound  = core.NewNotFoundError("parent", "", nil)

	ErrUserAlreadyExists    = core.NewAlreadyExistsError("user", "")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrInvalidRole          = errors.New("invalid role")
)

func UserNotFound(email string) error {
	return core.NewNotFoundError("user", "email", email)
}

// PersonNotFound returns the NotFoundError of the given role's entity.
func PersonNotFound(role Role, id int) error {
	return core.NewNotFoundError(role.entity(), "id", id)
}

func StudentNotFound(id int) error {
	return PersonNotFound(RoleStudent, id)
}

func userAlreadyExists(email string) error {
	return core.NewAlreadyExistsError("user", "with email "+email)
}

// DependentsRemover removes the rows referencing a person that is about to be deleted
// (subjects of a teacher, grades of a student..).
type DependentsRemover interface {
	RemoveDependents(ctx context.Context, p Principal) error
}

type Service struct {
	tx       core.Transactor
	repos    Repositories
	mailSvc  core.EmailService
	logger   core.Logger
	removers []DependentsRemover
}

func NewService(tx core.Transactor, repos Repositories, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		tx:      tx,
		repos:   repos,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// AddDependentsRemover registers r to run, in the deleting transaction, before a person is deleted.
func (svc *Service) AddDependentsRemover(r DependentsRemover) {
	svc.removers = append(svc.removers, r)
}

func (svc *Service) checkEmailAvailable(ctx context.Context, email string, exclude ...AppUser) error {
	au, err := svc.repos.AppUsers.GetAppUserByEmail(ctx, email)
	switch {
	case errors.Is(err, core.ErrNoRecord):
		return nil
	case err != nil:
		return errors.Wrap(err, "looking up email")
	}
	for _, ex := range exclude {
		if ex.ID == au.ID {
			return nil
		}
	}
	return userAlreadyExists(email)
}

func newPersonRow(np NewPerson) (Person, error) {
	now := NowFunc().UTC()
	p := Person{
		Firstname:  np.Firstname,
		Lastname:   np.Lastname,
		Patronymic: np.Patronymic,
		Email:      np.Email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Person{}, errors.Wrap(err, "hashing password")
	}
	return p, nil
}

// register runs the shared registration steps in one transaction:
// email availability, the person row (created by create), the role pointer row and the welcome email.
func (svc *Service) register(ctx context.Context, role Role, email string, create func(ctx context.Context) (Person, error)) (Person, error) {
	var p Person
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := svc.checkEmailAvailable(ctx, email); err != nil {
			return err
		}

		var err error
		if p, err = create(ctx); err != nil {
			if errors.Is(err, core.ErrConflict) {
				return userAlreadyExists(email)
			}
			return err
		}

		au := AppUser{UserID: p.ID, Role: role, Email: p.Email, CreatedAt: p.CreatedAt}
		if _, err = svc.repos.AppUsers.CreateAppUser(ctx, au); err != nil {
			if errors.Is(err, core.ErrConflict) {
				return userAlreadyExists(email)
			}
			return errors.Wrap(err, "creating app user")
		}

		return svc.mailSvc.SendMessages(welcomeMessage(p, role))
	})
	return p, err
}

func (svc *Service) registerPerson(ctx context.Context, role Role, np NewPerson) (Person, error) {
	return svc.register(ctx, role, np.Email, func(ctx context.Context) (Person, error) {
		row, err := newPersonRow(np)
		if err != nil {
			return Person{}, err
		}
		p, err := svc.repos.persons(role).CreatePerson(ctx, row)
		return p, errors.Wrapf(err, "creating %s", role.entity())
	})
}

func (svc *Service) RegisterAdmin(ctx context.Context, np NewPerson) (Person, error) {
	return svc.registerPerson(ctx, RoleAdmin, np)
}

func (svc *Service) RegisterTeacher(ctx context.Context, np NewPerson) (Person, error) {
	return svc.registerPerson(ctx, RoleTeacher, np)
}

// RegisterParent registers a parent and links the given existing students as children.
// Every student must exist, otherwise nothing is written.
func (svc *Service) RegisterParent(ctx context.Context, np NewParent) (Person, error) {
	return svc.register(ctx, RoleParent, np.Email, func(ctx context.Context) (Person, error) {
		ids := core.UniqueInts(np.StudentIDs)
		for _, id := range ids {
			if _, err := svc.GetStudent(ctx, id); err != nil {
				return Person{}, err
			}
		}

		row, err := newPersonRow(np.NewPerson)
		if err != nil {
			return Person{}, err
		}
		p, err := svc.repos.Parents.CreatePerson(ctx, row)
		if err != nil {
			return Person{}, errors.Wrap(err, "creating parent")
		}

		if len(ids) > 0 {
			if err = svc.repos.Students.SetStudentsParent(ctx, &p.ID, ids...); err != nil {
				return Person{}, errors.Wrap(err, "linking children")
			}
		}
		return p, nil
	})
}

func (svc *Service) RegisterStudent(ctx context.Context, np NewPerson) (Student, error) {
	var s Student
	_, err := svc.register(ctx, RoleStudent, np.Email, func(ctx context.Context) (Person, error) {
		row, err := newPersonRow(np)
		if err != nil {
			return Person{}, err
		}
		if s, err = svc.repos.Students.CreateStudent(ctx, Student{Person: row}); err != nil {
			return Person{}, errors.Wrap(err, "creating student")
		}
		return s.Person, nil
	})
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// Resolve looks up the role pointer row of email and loads the person it points to.
func (svc *Service) Resolve(ctx context.Context, email string) (Account, error) {
	email = core.CleanString(email, true /* lower */)

	au, err := svc.repos.AppUsers.GetAppUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return Account{}, UserNotFound(email)
		}
		return Account{}, errors.Wrap(err, "looking up app user")
	}
	return svc.load(ctx, au)
}

func (svc *Service) load(ctx context.Context, au AppUser) (Account, error) {
	acc := Account{Role: au.Role}
	var err error
	switch au.Role {
	case RoleStudent:
		var s Student
		if s, err = svc.repos.Students.GetStudentByID(ctx, au.UserID); err == nil {
			acc.Person = s.Person
			acc.Student = &s
		}
	case RoleAdmin, RoleTeacher, RoleParent:
		acc.Person, err = svc.repos.persons(au.Role).GetPersonByID(ctx, au.UserID)
	default:
		return Account{}, errors.Wrapf(ErrInvalidRole, "app user %d", au.ID)
	}

	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			// the pointer row outlived its person row: a data integrity bug, not a user error
			svc.logger.Error("dangling app user", map[string]interface{}{
				"app_user_id": au.ID,
				"role":        au.Role,
				"user_id":     au.UserID,
			})
			return Account{}, errors.Wrapf(UserNotFound(au.Email), "app user %d points to missing %s %d", au.ID, au.Role.entity(), au.UserID)
		}
		return Account{}, errors.Wrapf(err, "loading %s", au.Role.entity())
	}
	return acc, nil
}

// Authenticate checks the credentials of email and returns its Principal.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Principal, error) {
	acc, err := svc.Resolve(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Principal{}, ErrAuthenticationFailed
		}
		return Principal{}, err
	}
	if err = acc.Person.CheckPassword(pwd); err != nil {
		return Principal{}, ErrAuthenticationFailed
	}
	return acc.Principal(), nil
}

// QueryPersons lists admins, teachers or parents.
func (svc *Service) QueryPersons(ctx context.Context, role Role) ([]Person, error) {
	repo := svc.repos.persons(role)
	if repo == nil {
		return nil, ErrInvalidRole
	}
	ps, err := repo.QueryAllPersons(ctx)
	return ps, errors.Wrapf(err, "querying %ss", role.entity())
}

// GetPerson returns the admin, teacher, parent or student with the given id.
func (svc *Service) GetPerson(ctx context.Context, role Role, id int) (Person, error) {
	if role == RoleStudent {
		s, err := svc.GetStudent(ctx, id)
		return s.Person, err
	}
	repo := svc.repos.persons(role)
	if repo == nil {
		return Person{}, ErrInvalidRole
	}
	p, err := repo.GetPersonByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return Person{}, PersonNotFound(role, id)
		}
		return Person{}, errors.Wrapf(err, "getting %s", role.entity())
	}
	return p, nil
}

func (svc *Service) QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	ss, err := svc.repos.Students.FilterStudents(ctx, filter)
	return ss, errors.Wrap(err, "filtering students")
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	s, err := svc.repos.Students.GetStudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return Student{}, StudentNotFound(id)
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	return s, nil
}

// ChildrenOf returns the students of a parent. The parent must exist.
func (svc *Service) ChildrenOf(ctx context.Context, parentID int) ([]Student, error) {
	if _, err := svc.GetPerson(ctx, RoleParent, parentID); err != nil {
		return nil, err
	}
	return svc.QueryStudents(ctx, StudentFilter{ParentID: &parentID})
}

// UpdateByEmail resolves the role of email and updates the person row and, when the email changes,
// the role pointer row in the same transaction.
func (svc *Service) UpdateByEmail(ctx context.Context, email string, up UpdatePerson) (Account, error) {
	var acc Account
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		email = core.CleanString(email, true /* lower */)
		au, err := svc.repos.AppUsers.GetAppUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, core.ErrNoRecord) {
				return UserNotFound(email)
			}
			return errors.Wrap(err, "looking up app user")
		}
		if acc, err = svc.load(ctx, au); err != nil {
			return err
		}

		emailChanged := up.Email != "" && up.Email != au.Email
		if emailChanged {
			if err = svc.checkEmailAvailable(ctx, up.Email, au); err != nil {
				return err
			}
		}

		if err = up.apply(&acc.Person); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		acc.Person.UpdatedAt = NowFunc().UTC()

		if acc.Student != nil {
			acc.Student.Person = acc.Person
			var s Student
			if s, err = svc.repos.Students.UpdateStudent(ctx, *acc.Student); err == nil {
				acc.Student = &s
			}
		} else {
			acc.Person, err = svc.repos.persons(au.Role).UpdatePerson(ctx, acc.Person)
		}
		if err != nil {
			if errors.Is(err, core.ErrConflict) {
				return userAlreadyExists(up.Email)
			}
			return errors.Wrapf(err, "updating %s", au.Role.entity())
		}

		if emailChanged {
			if err = svc.repos.AppUsers.UpdateAppUserEmail(ctx, au.ID, up.Email); err != nil {
				if errors.Is(err, core.ErrConflict) {
					return userAlreadyExists(up.Email)
				}
				return errors.Wrap(err, "updating app user")
			}
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

// DeleteByEmail deletes the person of email, its dependents and its role pointer row atomically.
func (svc *Service) DeleteByEmail(ctx context.Context, email string) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		email = core.CleanString(email, true /* lower */)
		au, err := svc.repos.AppUsers.GetAppUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, core.ErrNoRecord) {
				return UserNotFound(email)
			}
			return errors.Wrap(err, "looking up app user")
		}

		p := au.Principal()
		for _, r := range svc.removers {
			if err = r.RemoveDependents(ctx, p); err != nil {
				return err
			}
		}

		switch au.Role {
		case RoleStudent:
			err = svc.repos.Students.DeleteStudent(ctx, au.UserID)
		case RoleParent:
			if err = svc.repos.Students.ClearParent(ctx, au.UserID); err != nil {
				return errors.Wrap(err, "detaching children")
			}
			err = svc.repos.Parents.DeletePerson(ctx, au.UserID)
		case RoleAdmin, RoleTeacher:
			err = svc.repos.persons(au.Role).DeletePerson(ctx, au.UserID)
		default:
			return errors.Wrapf(ErrInvalidRole, "app user %d", au.ID)
		}
		if err != nil && !errors.Is(err, core.ErrNoRecord) {
			return errors.Wrapf(err, "deleting %s", au.Role.entity())
		}

		return errors.Wrap(svc.repos.AppUsers.DeleteAppUser(ctx, au.ID), "deleting app user")
	})
}

// ResetPassword sets a new password on the person of email.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	_, err := svc.UpdateByEmail(ctx, email, UpdatePerson{Password: pwd, PasswordConfirm: pwd})
	return err
}

func welcomeMessage(p Person, role Role) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName(), Address: p.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name":  p.FullName(),
			"Role":  role.DisplayName(),
			"Email": p.Email,
		},
	}
}
