package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shkola/core/user"
)

const (
	personColumns  = "id, firstname, lastname, patronymic, email, password_hash, created_at, updated_at"
	studentColumns = personColumns + ", class_id, parent_id"
)

type personRow struct {
	ID           int        `db:"id"`
	Firstname    string     `db:"firstname"`
	Lastname     string     `db:"lastname"`
	Patronymic   string     `db:"patronymic"`
	Email        string     `db:"email"`
	PasswordHash null.Bytes `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func toPersonRow(p user.Person) personRow {
	return personRow{
		ID:           p.ID,
		Firstname:    p.Firstname,
		Lastname:     p.Lastname,
		Patronymic:   p.Patronymic,
		Email:        p.Email,
		PasswordHash: null.BytesFrom(p.PasswordHash),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (r personRow) person() user.Person {
	var hash []byte
	if r.PasswordHash.Valid {
		hash = r.PasswordHash.Bytes
	}
	return user.Person{
		ID:           r.ID,
		Firstname:    r.Firstname,
		Lastname:     r.Lastname,
		Patronymic:   r.Patronymic,
		Email:        r.Email,
		PasswordHash: hash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type studentRow struct {
	personRow
	ClassID  null.Int `db:"class_id"`
	ParentID null.Int `db:"parent_id"`
}

func (r studentRow) student() user.Student {
	return user.Student{
		Person:   r.person(),
		ClassID:  r.ClassID.Ptr(),
		ParentID: r.ParentID.Ptr(),
	}
}

func students(rows []studentRow) []user.Student {
	res := make([]user.Student, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.student())
	}
	return res
}

type personRepository struct {
	store *Store
	table string
}

var _ user.PersonRepository = (*personRepository)(nil) // interface compliance check

func NewAdminRepository(store *Store) user.PersonRepository {
	return &personRepository{store: store, table: "admins"}
}

func NewTeacherRepository(store *Store) user.PersonRepository {
	return &personRepository{store: store, table: "teachers"}
}

func NewParentRepository(store *Store) user.PersonRepository {
	return &personRepository{store: store, table: "parents"}
}

func (repo *personRepository) CreatePerson(ctx context.Context, p user.Person) (user.Person, error) {
	row := toPersonRow(p)
	q := fmt.Sprintf(`INSERT INTO %s (firstname, lastname, patronymic, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING %s`, repo.table, personColumns)
	var res personRow
	err := repo.store.get(ctx, &res, q,
		row.Firstname, row.Lastname, row.Patronymic, row.Email, row.PasswordHash, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return user.Person{}, err
	}
	return res.person(), nil
}

func (repo *personRepository) QueryAllPersons(ctx context.Context) ([]user.Person, error) {
	var rows []personRow
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", personColumns, repo.table)
	if err := repo.store.selectAll(ctx, &rows, q); err != nil {
		return nil, err
	}
	persons := make([]user.Person, 0, len(rows))
	for _, r := range rows {
		persons = append(persons, r.person())
	}
	return persons, nil
}

func (repo *personRepository) GetPersonByID(ctx context.Context, id int) (user.Person, error) {
	var row personRow
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", personColumns, repo.table)
	if err := repo.store.get(ctx, &row, q, id); err != nil {
		return user.Person{}, err
	}
	return row.person(), nil
}

// UpdatePerson keeps the stored password hash when p has none.
func (repo *personRepository) UpdatePerson(ctx context.Context, p user.Person) (user.Person, error) {
	row := toPersonRow(p)
	q := fmt.Sprintf(`UPDATE %s SET firstname = $2, lastname = $3, patronymic = $4, email = $5,
		password_hash = COALESCE($6, password_hash), updated_at = $7 WHERE id = $1 RETURNING %s`,
		repo.table, personColumns)
	var res personRow
	err := repo.store.get(ctx, &res, q,
		row.ID, row.Firstname, row.Lastname, row.Patronymic, row.Email, row.PasswordHash, row.UpdatedAt,
	)
	if err != nil {
		return user.Person{}, err
	}
	return res.person(), nil
}

func (repo *personRepository) DeletePerson(ctx context.Context, id int) error {
	return repo.store.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", repo.table), id)
}

type studentRepository struct {
	store *Store
}

var _ user.StudentRepository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(store *Store) user.StudentRepository {
	return &studentRepository{store: store}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s user.Student) (user.Student, error) {
	row := toPersonRow(s.Person)
	var res studentRow
	err := repo.store.get(ctx, &res, `INSERT INTO students
		(firstname, lastname, patronymic, email, password_hash, class_id, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+studentColumns,
		row.Firstname, row.Lastname, row.Patronymic, row.Email, row.PasswordHash,
		null.IntFromPtr(s.ClassID), null.IntFromPtr(s.ParentID), row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return user.Student{}, err
	}
	return res.student(), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter user.StudentFilter) ([]user.Student, error) {
	w := new(where)
	if filter.ClassID != nil {
		w.add("class_id = $%d", *filter.ClassID)
	}
	if filter.ParentID != nil {
		w.add("parent_id = $%d", *filter.ParentID)
	}

	var rows []studentRow
	if err := repo.store.selectAll(ctx, &rows, "SELECT "+studentColumns+" FROM students"+w.String()+" ORDER BY id", w.args...); err != nil {
		return nil, err
	}
	return students(rows), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int) (user.Student, error) {
	var row studentRow
	if err := repo.store.get(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return user.Student{}, err
	}
	return row.student(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s user.Student) (user.Student, error) {
	row := toPersonRow(s.Person)
	var res studentRow
	err := repo.store.get(ctx, &res, `UPDATE students SET firstname = $2, lastname = $3, patronymic = $4, email = $5,
		password_hash = COALESCE($6, password_hash), class_id = $7, parent_id = $8, updated_at = $9
		WHERE id = $1 RETURNING `+studentColumns,
		row.ID, row.Firstname, row.Lastname, row.Patronymic, row.Email, row.PasswordHash,
		null.IntFromPtr(s.ClassID), null.IntFromPtr(s.ParentID), row.UpdatedAt,
	)
	if err != nil {
		return user.Student{}, err
	}
	return res.student(), nil
}

func (repo *studentRepository) SetStudentsClass(ctx context.Context, classID *int, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.store.execMany(ctx, "UPDATE students SET class_id = $1 WHERE id = ANY($2)", null.IntFromPtr(classID), pq.Array(ids))
}

func (repo *studentRepository) ClearClass(ctx context.Context, classID int) error {
	return repo.store.execMany(ctx, "UPDATE students SET class_id = NULL WHERE class_id = $1", classID)
}

func (repo *studentRepository) SetStudentsParent(ctx context.Context, parentID *int, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.store.execMany(ctx, "UPDATE students SET parent_id = $1 WHERE id = ANY($2)", null.IntFromPtr(parentID), pq.Array(ids))
}

func (repo *studentRepository) ClearParent(ctx context.Context, parentID int) error {
	return repo.store.execMany(ctx, "UPDATE students SET parent_id = NULL WHERE parent_id = $1", parentID)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM students WHERE id = $1", id)
}

type appUserRow struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Role      string    `db:"role"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

func (r appUserRow) appUser() user.AppUser {
	return user.AppUser{
		ID:        r.ID,
		UserID:    r.UserID,
		Role:      user.Role(r.Role),
		Email:     r.Email,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type appUserRepository struct {
	store *Store
}

var _ user.AppUserRepository = (*appUserRepository)(nil) // interface compliance check

func NewAppUserRepository(store *Store) user.AppUserRepository {
	return &appUserRepository{store: store}
}

func (repo *appUserRepository) CreateAppUser(ctx context.Context, au user.AppUser) (user.AppUser, error) {
	var row appUserRow
	err := repo.store.get(ctx, &row, `INSERT INTO app_users (user_id, role, email, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id, user_id, role, email, created_at`,
		au.UserID, string(au.Role), au.Email, au.CreatedAt.UTC(),
	)
	if err != nil {
		return user.AppUser{}, err
	}
	return row.appUser(), nil
}

func (repo *appUserRepository) GetAppUserByEmail(ctx context.Context, email string) (user.AppUser, error) {
	var row appUserRow
	err := repo.store.get(ctx, &row, "SELECT id, user_id, role, email, created_at FROM app_users WHERE email = $1", email)
	if err != nil {
		return user.AppUser{}, err
	}
	return row.appUser(), nil
}

func (repo *appUserRepository) UpdateAppUserEmail(ctx context.Context, id int, email string) error {
	return repo.store.exec(ctx, "UPDATE app_users SET email = $2 WHERE id = $1", id, email)
}

func (repo *appUserRepository) DeleteAppUser(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM app_users WHERE id = $1", id)
}

// NewUserRepositories returns the user repositories over store.
func NewUserRepositories(store *Store) user.Repositories {
	return user.Repositories{
		Admins:   NewAdminRepository(store),
		Teachers: NewTeacherRepository(store),
		Parents:  NewParentRepository(store),
		Students: NewStudentRepository(store),
		AppUsers: NewAppUserRepository(store),
	}
}
