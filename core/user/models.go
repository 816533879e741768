package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shkola/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

	Roles = []RoleInfo{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
	}
)

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) DisplayName() string {
	for _, info := range Roles {
		if info.Value == r {
			return info.Name
		}
	}
	return string(r)
}

// entity is the name used for r in errors (eg. "teacher not found").
func (r Role) entity() string {
	return strings.ToLower(string(r))
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// Principal is the resolved identity of a caller: a role and the id of the
// underlying Admin, Teacher, Student or Parent row.
type Principal struct {
	Role  Role   `json:"role"`
	ID    int    `json:"id"`
	Email string `json:"email"`
}

func AdminPrincipal(id int) Principal   { return Principal{Role: RoleAdmin, ID: id} }
func TeacherPrincipal(id int) Principal { return Principal{Role: RoleTeacher, ID: id} }
func StudentPrincipal(id int) Principal { return Principal{Role: RoleStudent, ID: id} }
func ParentPrincipal(id int) Principal  { return Principal{Role: RoleParent, ID: id} }

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Principal) IsStudent() bool { return p.Role == RoleStudent }
func (p Principal) IsParent() bool  { return p.Role == RoleParent }

// AppUser is the role pointer row: it maps an email to the underlying person row.
type AppUser struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (au AppUser) Principal() Principal {
	return Principal{Role: au.Role, ID: au.UserID, Email: au.Email}
}

// Person holds the fields shared by Admins, Teachers, Parents and Students.
type Person struct {
	ID           int       `json:"id"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	Patronymic   string    `json:"patronymic"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (p *Person) FullName() string {
	name := p.Lastname + " " + p.Firstname
	if p.Patronymic != "" {
		name += " " + p.Patronymic
	}
	return name
}

func (p *Person) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Person) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

type Student struct {
	Person
	ClassID  *int `json:"class_id"`
	ParentID *int `json:"parent_id"`
}

// Account is a person resolved through its role pointer row.
type Account struct {
	Role    Role     `json:"role"`
	Person  Person   `json:"person"`
	Student *Student `json:"student,omitempty"`
}

func (a Account) Principal() Principal {
	return Principal{Role: a.Role, ID: a.Person.ID, Email: a.Person.Email}
}

// NewPerson contains information needed to register a new Admin, Teacher or Student.
type NewPerson struct {
	Firstname       string `json:"firstname" validate:"required,max=100"`
	Lastname        string `json:"lastname" validate:"required,max=100"`
	Patronymic      string `json:"patronymic" validate:"max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (np *NewPerson) clean() {
	np.Firstname = core.CleanString(np.Firstname)
	np.Lastname = core.CleanString(np.Lastname)
	np.Patronymic = core.CleanString(np.Patronymic)
	np.Email = core.CleanString(np.Email, true /* lower */)
}

func (np *NewPerson) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

// NewParent is a NewPerson that may be linked to existing students.
type NewParent struct {
	NewPerson
	StudentIDs []int `json:"student_ids" validate:"omitempty,dive,gt=0"`
}

func (np *NewParent) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

// UpdatePerson defines what information may be provided to modify an existing person.
// Empty fields are left unchanged.
type UpdatePerson struct {
	Firstname       string  `json:"firstname" validate:"max=100"`
	Lastname        string  `json:"lastname" validate:"max=100"`
	Patronymic      *string `json:"patronymic" validate:"omitempty,max=100"`
	Email           string  `json:"email" validate:"omitempty,email,max=254"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (up *UpdatePerson) Validate(validate *validator.Validate) error {
	up.Firstname = core.CleanString(up.Firstname)
	up.Lastname = core.CleanString(up.Lastname)
	if up.Patronymic != nil {
		p := core.CleanString(*up.Patronymic)
		up.Patronymic = &p
	}
	up.Email = core.CleanString(up.Email, true /* lower */)
	return validate.Struct(up)
}

func (up UpdatePerson) apply(p *Person) error {
	if up.Firstname != "" {
		p.Firstname = up.Firstname
	}
	if up.Lastname != "" {
		p.Lastname = up.Lastname
	}
	if up.Patronymic != nil {
		p.Patronymic = *up.Patronymic
	}
	if up.Email != "" {
		p.Email = up.Email
	}
	if up.Password != "" {
		if err := p.SetPassword(up.Password); err != nil {
			return err
		}
	}
	return nil
}

type StudentFilter struct {
	ClassID  *int
	ParentID *int
}
