package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shkola/core/school"
)

var errEmptyFilter = errors.New("refusing to bulk delete with an empty filter")

const (
	classColumns    = "id, letter, number, description, created_at, updated_at"
	subjectColumns  = "id, name, type, code, description, class_id, teacher_id, created_at, updated_at"
	scheduleColumns = "id, day_of_week, start_time, classroom, class_id, subject_id, created_at, updated_at"
	gradeColumns    = "id, mark, date, comment, student_id, subject_id, created_at, updated_at"
	homeworkColumns = "id, title, description, deadline, class_id, subject_id, created_at, updated_at"
)

type classRow struct {
	ID          int       `db:"id"`
	Letter      string    `db:"letter"`
	Number      int       `db:"number"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r classRow) class() school.Class {
	return school.Class{
		ID:          r.ID,
		Letter:      r.Letter,
		Number:      r.Number,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type classRepository struct {
	store *Store
}

var _ school.ClassRepository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(store *Store) school.ClassRepository {
	return &classRepository{store: store}
}

func (repo *classRepository) CreateClass(ctx context.Context, c school.Class) (school.Class, error) {
	var row classRow
	err := repo.store.get(ctx, &row, `INSERT INTO classes (letter, number, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+classColumns,
		c.Letter, c.Number, c.Description, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Class{}, err
	}
	return row.class(), nil
}

func (repo *classRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	var rows []classRow
	if err := repo.store.selectAll(ctx, &rows, "SELECT "+classColumns+" FROM classes ORDER BY id"); err != nil {
		return nil, err
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id int) (school.Class, error) {
	var row classRow
	if err := repo.store.get(ctx, &row, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return school.Class{}, err
	}
	return row.class(), nil
}

func (repo *classRepository) GetClassByLetterAndNumber(ctx context.Context, letter string, number int) (school.Class, error) {
	var row classRow
	err := repo.store.get(ctx, &row, "SELECT "+classColumns+" FROM classes WHERE letter = $1 AND number = $2", letter, number)
	if err != nil {
		return school.Class{}, err
	}
	return row.class(), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, c school.Class) (school.Class, error) {
	var row classRow
	err := repo.store.get(ctx, &row, `UPDATE classes SET letter = $2, number = $3, description = $4, updated_at = $5
		WHERE id = $1 RETURNING `+classColumns,
		c.ID, c.Letter, c.Number, c.Description, c.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Class{}, err
	}
	return row.class(), nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM classes WHERE id = $1", id)
}

type subjectRow struct {
	ID          int       `db:"id"`
	Name        string    `db:"name"`
	Type        string    `db:"type"`
	Code        string    `db:"code"`
	Description string    `db:"description"`
	ClassID     null.Int  `db:"class_id"`
	TeacherID   int       `db:"teacher_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r subjectRow) subject() school.Subject {
	return school.Subject{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Code:        r.Code,
		Description: r.Description,
		ClassID:     r.ClassID.Ptr(),
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type subjectRepository struct {
	store *Store
}

var _ school.SubjectRepository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(store *Store) school.SubjectRepository {
	return &subjectRepository{store: store}
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	var row subjectRow
	err := repo.store.get(ctx, &row, `INSERT INTO subjects
		(name, type, code, description, class_id, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+subjectColumns,
		s.Name, s.Type, s.Code, s.Description, null.IntFromPtr(s.ClassID), s.TeacherID,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Subject{}, err
	}
	return row.subject(), nil
}

func (repo *subjectRepository) FilterSubjects(ctx context.Context, filter school.SubjectFilter) ([]school.Subject, error) {
	w := new(where)
	if filter.ClassID != nil {
		w.add("class_id = $%d", *filter.ClassID)
	}
	if filter.TeacherID != nil {
		w.add("teacher_id = $%d", *filter.TeacherID)
	}
	if filter.Name != "" {
		w.add("name = $%d", filter.Name)
	}
	if filter.Code != "" {
		w.add("code = $%d", filter.Code)
	}

	var rows []subjectRow
	if err := repo.store.selectAll(ctx, &rows, "SELECT "+subjectColumns+" FROM subjects"+w.String()+" ORDER BY id", w.args...); err != nil {
		return nil, err
	}
	subjects := make([]school.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id int) (school.Subject, error) {
	var row subjectRow
	if err := repo.store.get(ctx, &row, "SELECT "+subjectColumns+" FROM subjects WHERE id = $1", id); err != nil {
		return school.Subject{}, err
	}
	return row.subject(), nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	var row subjectRow
	err := repo.store.get(ctx, &row, `UPDATE subjects SET name = $2, type = $3, code = $4, description = $5,
		class_id = $6, teacher_id = $7, updated_at = $8 WHERE id = $1 RETURNING `+subjectColumns,
		s.ID, s.Name, s.Type, s.Code, s.Description, null.IntFromPtr(s.ClassID), s.TeacherID, s.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Subject{}, err
	}
	return row.subject(), nil
}

// SetSubjectsClass runs as a single statement, so a unique violation on any row leaves every subject unchanged.
func (repo *subjectRepository) SetSubjectsClass(ctx context.Context, classID *int, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.store.execMany(ctx, "UPDATE subjects SET class_id = $1 WHERE id = ANY($2)", null.IntFromPtr(classID), pq.Array(ids))
}

func (repo *subjectRepository) ClearClass(ctx context.Context, classID int) error {
	return repo.store.execMany(ctx, "UPDATE subjects SET class_id = NULL WHERE class_id = $1", classID)
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM subjects WHERE id = $1", id)
}

type scheduleRow struct {
	ID        int       `db:"id"`
	Day       int       `db:"day_of_week"`
	StartTime string    `db:"start_time"`
	Classroom int       `db:"classroom"`
	ClassID   int       `db:"class_id"`
	SubjectID int       `db:"subject_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r scheduleRow) schedule() school.Schedule {
	return school.Schedule{
		ID:        r.ID,
		Day:       school.Weekday(r.Day),
		StartTime: r.StartTime,
		Classroom: r.Classroom,
		ClassID:   r.ClassID,
		SubjectID: r.SubjectID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func scheduleWhere(filter school.ScheduleFilter) *where {
	w := new(where)
	if filter.ClassID != nil {
		w.add("class_id = $%d", *filter.ClassID)
	}
	if filter.SubjectID != nil {
		w.add("subject_id = $%d", *filter.SubjectID)
	}
	return w
}

type scheduleRepository struct {
	store *Store
}

var _ school.ScheduleRepository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(store *Store) school.ScheduleRepository {
	return &scheduleRepository{store: store}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s school.Schedule) (school.Schedule, error) {
	var row scheduleRow
	err := repo.store.get(ctx, &row, `INSERT INTO schedules
		(day_of_week, start_time, classroom, class_id, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+scheduleColumns,
		int(s.Day), s.StartTime, s.Classroom, s.ClassID, s.SubjectID, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Schedule{}, err
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) FilterSchedules(ctx context.Context, filter school.ScheduleFilter) ([]school.Schedule, error) {
	w := scheduleWhere(filter)
	var rows []scheduleRow
	q := "SELECT " + scheduleColumns + " FROM schedules" + w.String() + " ORDER BY day_of_week, start_time, id"
	if err := repo.store.selectAll(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	schedules := make([]school.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, r.schedule())
	}
	return schedules, nil
}

func (repo *scheduleRepository) GetScheduleByID(ctx context.Context, id int) (school.Schedule, error) {
	var row scheduleRow
	if err := repo.store.get(ctx, &row, "SELECT "+scheduleColumns+" FROM schedules WHERE id = $1", id); err != nil {
		return school.Schedule{}, err
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, s school.Schedule) (school.Schedule, error) {
	var row scheduleRow
	err := repo.store.get(ctx, &row, `UPDATE schedules SET day_of_week = $2, start_time = $3, classroom = $4,
		class_id = $5, subject_id = $6, updated_at = $7 WHERE id = $1 RETURNING `+scheduleColumns,
		s.ID, int(s.Day), s.StartTime, s.Classroom, s.ClassID, s.SubjectID, s.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Schedule{}, err
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM schedules WHERE id = $1", id)
}

func (repo *scheduleRepository) DeleteSchedules(ctx context.Context, filter school.ScheduleFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	w := scheduleWhere(filter)
	return repo.store.execMany(ctx, "DELETE FROM schedules"+w.String(), w.args...)
}

type gradeRow struct {
	ID        int       `db:"id"`
	Mark      int       `db:"mark"`
	Date      time.Time `db:"date"`
	Comment   string    `db:"comment"`
	StudentID int       `db:"student_id"`
	SubjectID int       `db:"subject_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r gradeRow) grade() school.Grade {
	return school.Grade{
		ID:        r.ID,
		Mark:      r.Mark,
		Date:      asDate(r.Date),
		Comment:   r.Comment,
		StudentID: r.StudentID,
		SubjectID: r.SubjectID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// asDate drops the location the driver attaches to DATE columns.
func asDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func gradeWhere(filter school.GradeFilter) *where {
	w := new(where)
	if filter.StudentID != nil {
		w.add("student_id = $%d", *filter.StudentID)
	}
	if filter.SubjectID != nil {
		w.add("subject_id = $%d", *filter.SubjectID)
	}
	return w
}

type gradeRepository struct {
	store *Store
}

var _ school.GradeRepository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(store *Store) school.GradeRepository {
	return &gradeRepository{store: store}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g school.Grade) (school.Grade, error) {
	var row gradeRow
	err := repo.store.get(ctx, &row, `INSERT INTO grades
		(mark, date, comment, student_id, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+gradeColumns,
		g.Mark, g.Date.Format(school.DateLayout), g.Comment, g.StudentID, g.SubjectID, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Grade{}, err
	}
	return row.grade(), nil
}

func (repo *gradeRepository) FilterGrades(ctx context.Context, filter school.GradeFilter) ([]school.Grade, error) {
	w := gradeWhere(filter)
	var rows []gradeRow
	if err := repo.store.selectAll(ctx, &rows, "SELECT "+gradeColumns+" FROM grades"+w.String()+" ORDER BY date, id", w.args...); err != nil {
		return nil, err
	}
	grades := make([]school.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.grade())
	}
	return grades, nil
}

func (repo *gradeRepository) GetGradeByID(ctx context.Context, id int) (school.Grade, error) {
	var row gradeRow
	if err := repo.store.get(ctx, &row, "SELECT "+gradeColumns+" FROM grades WHERE id = $1", id); err != nil {
		return school.Grade{}, err
	}
	return row.grade(), nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g school.Grade) (school.Grade, error) {
	var row gradeRow
	err := repo.store.get(ctx, &row, `UPDATE grades SET mark = $2, date = $3, comment = $4, updated_at = $5
		WHERE id = $1 RETURNING `+gradeColumns,
		g.ID, g.Mark, g.Date.Format(school.DateLayout), g.Comment, g.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Grade{}, err
	}
	return row.grade(), nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM grades WHERE id = $1", id)
}

func (repo *gradeRepository) DeleteGrades(ctx context.Context, filter school.GradeFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	w := gradeWhere(filter)
	return repo.store.execMany(ctx, "DELETE FROM grades"+w.String(), w.args...)
}

type homeworkRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Deadline    time.Time `db:"deadline"`
	ClassID     int       `db:"class_id"`
	SubjectID   int       `db:"subject_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r homeworkRow) homework() school.Homework {
	return school.Homework{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Deadline:    asDate(r.Deadline),
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func homeworkWhere(filter school.HomeworkFilter) *where {
	w := new(where)
	if filter.ClassID != nil {
		w.add("class_id = $%d", *filter.ClassID)
	}
	if filter.SubjectID != nil {
		w.add("subject_id = $%d", *filter.SubjectID)
	}
	return w
}

type homeworkRepository struct {
	store *Store
}

var _ school.HomeworkRepository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(store *Store) school.HomeworkRepository {
	return &homeworkRepository{store: store}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, h school.Homework) (school.Homework, error) {
	var row homeworkRow
	err := repo.store.get(ctx, &row, `INSERT INTO homeworks
		(title, description, deadline, class_id, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+homeworkColumns,
		h.Title, h.Description, h.Deadline.Format(school.DateLayout), h.ClassID, h.SubjectID,
		h.CreatedAt.UTC(), h.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Homework{}, err
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) FilterHomeworks(ctx context.Context, filter school.HomeworkFilter) ([]school.Homework, error) {
	w := homeworkWhere(filter)
	var rows []homeworkRow
	q := "SELECT " + homeworkColumns + " FROM homeworks" + w.String() + " ORDER BY deadline, id"
	if err := repo.store.selectAll(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	homeworks := make([]school.Homework, 0, len(rows))
	for _, r := range rows {
		homeworks = append(homeworks, r.homework())
	}
	return homeworks, nil
}

func (repo *homeworkRepository) GetHomeworkByID(ctx context.Context, id int) (school.Homework, error) {
	var row homeworkRow
	if err := repo.store.get(ctx, &row, "SELECT "+homeworkColumns+" FROM homeworks WHERE id = $1", id); err != nil {
		return school.Homework{}, err
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, h school.Homework) (school.Homework, error) {
	var row homeworkRow
	err := repo.store.get(ctx, &row, `UPDATE homeworks SET title = $2, description = $3, deadline = $4, updated_at = $5
		WHERE id = $1 RETURNING `+homeworkColumns,
		h.ID, h.Title, h.Description, h.Deadline.Format(school.DateLayout), h.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.Homework{}, err
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) DeleteHomework(ctx context.Context, id int) error {
	return repo.store.exec(ctx, "DELETE FROM homeworks WHERE id = $1", id)
}

func (repo *homeworkRepository) DeleteHomeworks(ctx context.Context, filter school.HomeworkFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	w := homeworkWhere(filter)
	return repo.store.execMany(ctx, "DELETE FROM homeworks"+w.String(), w.args...)
}

// NewSchoolRepositories returns the school repositories over store.
func NewSchoolRepositories(store *Store) school.Repositories {
	return school.Repositories{
		Classes:   NewClassRepository(store),
		Subjects:  NewSubjectRepository(store),
		Schedules: NewScheduleRepository(store),
		Grades:    NewGradeRepository(store),
		Homeworks: NewHomeworkRepository(store),
		Students:  NewStudentRepository(store),
	}
}
