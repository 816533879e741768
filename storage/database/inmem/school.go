package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
)

var errEmptyFilter = errors.New("refusing to bulk delete with an empty filter")

type classRepository struct {
	db *table[school.Class]
}

var _ school.ClassRepository = (*classRepository)(nil)

func NewClassRepository(db *DB) school.ClassRepository {
	return &classRepository{db: db.classes}
}

func (repo *classRepository) taken(c school.Class) bool {
	for _, row := range repo.db.rows {
		if row.Letter == c.Letter && row.Number == c.Number && row.ID != c.ID {
			return true
		}
	}
	return false
}

func (repo *classRepository) CreateClass(_ context.Context, c school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.taken(c) {
		return school.Class{}, core.ErrConflict
	}
	c.ID = repo.db.nextID()
	repo.db.rows[c.ID] = c
	return c, nil
}

func (repo *classRepository) QueryAllClasses(_ context.Context) ([]school.Class, error) {
	return repo.db.filter(nil), nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int) (school.Class, error) {
	return repo.db.get(id)
}

func (repo *classRepository) GetClassByLetterAndNumber(_ context.Context, letter string, number int) (school.Class, error) {
	return repo.db.find(func(c school.Class) bool { return c.Letter == letter && c.Number == number })
}

func (repo *classRepository) UpdateClass(_ context.Context, c school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[c.ID]
	if !ok {
		return school.Class{}, core.ErrNoRecord
	}
	if repo.taken(c) {
		return school.Class{}, core.ErrConflict
	}
	c.CreatedAt = orig.CreatedAt
	repo.db.rows[c.ID] = c
	return c, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int) error {
	return repo.db.delete(id)
}

type subjectRepository struct {
	db *table[school.Subject]
}

var _ school.SubjectRepository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) school.SubjectRepository {
	return &subjectRepository{db: db.subjects}
}

// taken checks the code and the (name, class) unique constraints.
func (repo *subjectRepository) taken(s school.Subject) bool {
	for _, row := range repo.db.rows {
		if row.ID == s.ID {
			continue
		}
		if row.Code == s.Code {
			return true
		}
		if s.ClassID != nil && row.Name == s.Name && intPtrEqual(row.ClassID, s.ClassID) {
			return true
		}
	}
	return false
}

func (repo *subjectRepository) CreateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.taken(s) {
		return school.Subject{}, core.ErrConflict
	}
	s.ID = repo.db.nextID()
	s.ClassID = copyIntPtr(s.ClassID)
	repo.db.rows[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) FilterSubjects(_ context.Context, filter school.SubjectFilter) ([]school.Subject, error) {
	return repo.db.filter(func(s school.Subject) bool {
		switch {
		case filter.ClassID != nil && !intPtrEqual(s.ClassID, filter.ClassID):
			return false
		case filter.TeacherID != nil && s.TeacherID != *filter.TeacherID:
			return false
		case filter.Name != "" && s.Name != filter.Name:
			return false
		case filter.Code != "" && s.Code != filter.Code:
			return false
		}
		return true
	}), nil
}

func (repo *subjectRepository) GetSubjectByID(_ context.Context, id int) (school.Subject, error) {
	return repo.db.get(id)
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[s.ID]
	if !ok {
		return school.Subject{}, core.ErrNoRecord
	}
	if repo.taken(s) {
		return school.Subject{}, core.ErrConflict
	}
	s.CreatedAt = orig.CreatedAt
	s.ClassID = copyIntPtr(s.ClassID)
	repo.db.rows[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) SetSubjectsClass(_ context.Context, classID *int, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	in := inIDs(ids)
	moved := make(map[int]school.Subject, len(ids))
	for id, s := range repo.db.rows {
		if in(id) {
			s.ClassID = copyIntPtr(classID)
			moved[id] = s
		}
	}
	// all or nothing
	for _, s := range moved {
		if repo.takenAfterMove(s, moved) {
			return core.ErrConflict
		}
	}
	for id, s := range moved {
		repo.db.rows[id] = s
	}
	return nil
}

// takenAfterMove checks the (name, class) constraint of s as if every subject of moved was updated.
func (repo *subjectRepository) takenAfterMove(s school.Subject, moved map[int]school.Subject) bool {
	if s.ClassID == nil {
		return false
	}
	for id, row := range repo.db.rows {
		if m, ok := moved[id]; ok {
			row = m
		}
		if row.ID != s.ID && row.Name == s.Name && intPtrEqual(row.ClassID, s.ClassID) {
			return true
		}
	}
	return false
}

func (repo *subjectRepository) ClearClass(_ context.Context, classID int) error {
	repo.db.update(
		func(s school.Subject) bool { return s.ClassID != nil && *s.ClassID == classID },
		func(s *school.Subject) { s.ClassID = nil },
	)
	return nil
}

func (repo *subjectRepository) DeleteSubject(_ context.Context, id int) error {
	return repo.db.delete(id)
}

type scheduleRepository struct {
	db *table[school.Schedule]
}

var _ school.ScheduleRepository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) school.ScheduleRepository {
	return &scheduleRepository{db: db.schedules}
}

func scheduleMatcher(filter school.ScheduleFilter) func(school.Schedule) bool {
	return func(s school.Schedule) bool {
		if filter.ClassID != nil && s.ClassID != *filter.ClassID {
			return false
		}
		if filter.SubjectID != nil && s.SubjectID != *filter.SubjectID {
			return false
		}
		return true
	}
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s school.Schedule) (school.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = repo.db.nextID()
	repo.db.rows[s.ID] = s
	return s, nil
}

func (repo *scheduleRepository) FilterSchedules(_ context.Context, filter school.ScheduleFilter) ([]school.Schedule, error) {
	ss := repo.db.filter(scheduleMatcher(filter))
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Day != ss[j].Day {
			return ss[i].Day < ss[j].Day
		}
		return ss[i].StartTime < ss[j].StartTime
	})
	return ss, nil
}

func (repo *scheduleRepository) GetScheduleByID(_ context.Context, id int) (school.Schedule, error) {
	return repo.db.get(id)
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, s school.Schedule) (school.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[s.ID]
	if !ok {
		return school.Schedule{}, core.ErrNoRecord
	}
	s.CreatedAt = orig.CreatedAt
	repo.db.rows[s.ID] = s
	return s, nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, id int) error {
	return repo.db.delete(id)
}

func (repo *scheduleRepository) DeleteSchedules(_ context.Context, filter school.ScheduleFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	repo.db.deleteWhere(scheduleMatcher(filter))
	return nil
}

type gradeRepository struct {
	db *table[school.Grade]
}

var _ school.GradeRepository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) school.GradeRepository {
	return &gradeRepository{db: db.grades}
}

func gradeMatcher(filter school.GradeFilter) func(school.Grade) bool {
	return func(g school.Grade) bool {
		if filter.StudentID != nil && g.StudentID != *filter.StudentID {
			return false
		}
		if filter.SubjectID != nil && g.SubjectID != *filter.SubjectID {
			return false
		}
		return true
	}
}

func (repo *gradeRepository) CreateGrade(_ context.Context, g school.Grade) (school.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g.ID = repo.db.nextID()
	repo.db.rows[g.ID] = g
	return g, nil
}

func (repo *gradeRepository) FilterGrades(_ context.Context, filter school.GradeFilter) ([]school.Grade, error) {
	gs := repo.db.filter(gradeMatcher(filter))
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Date.Before(gs[j].Date) })
	return gs, nil
}

func (repo *gradeRepository) GetGradeByID(_ context.Context, id int) (school.Grade, error) {
	return repo.db.get(id)
}

func (repo *gradeRepository) UpdateGrade(_ context.Context, g school.Grade) (school.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[g.ID]
	if !ok {
		return school.Grade{}, core.ErrNoRecord
	}
	g.CreatedAt = orig.CreatedAt
	repo.db.rows[g.ID] = g
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, id int) error {
	return repo.db.delete(id)
}

func (repo *gradeRepository) DeleteGrades(_ context.Context, filter school.GradeFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	repo.db.deleteWhere(gradeMatcher(filter))
	return nil
}

type homeworkRepository struct {
	db *table[school.Homework]
}

var _ school.HomeworkRepository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *DB) school.HomeworkRepository {
	return &homeworkRepository{db: db.homeworks}
}

func homeworkMatcher(filter school.HomeworkFilter) func(school.Homework) bool {
	return func(h school.Homework) bool {
		if filter.ClassID != nil && h.ClassID != *filter.ClassID {
			return false
		}
		if filter.SubjectID != nil && h.SubjectID != *filter.SubjectID {
			return false
		}
		return true
	}
}

func (repo *homeworkRepository) CreateHomework(_ context.Context, h school.Homework) (school.Homework, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	h.ID = repo.db.nextID()
	repo.db.rows[h.ID] = h
	return h, nil
}

func (repo *homeworkRepository) FilterHomeworks(_ context.Context, filter school.HomeworkFilter) ([]school.Homework, error) {
	hs := repo.db.filter(homeworkMatcher(filter))
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Deadline.Before(hs[j].Deadline) })
	return hs, nil
}

func (repo *homeworkRepository) GetHomeworkByID(_ context.Context, id int) (school.Homework, error) {
	return repo.db.get(id)
}

func (repo *homeworkRepository) UpdateHomework(_ context.Context, h school.Homework) (school.Homework, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[h.ID]
	if !ok {
		return school.Homework{}, core.ErrNoRecord
	}
	h.CreatedAt = orig.CreatedAt
	repo.db.rows[h.ID] = h
	return h, nil
}

func (repo *homeworkRepository) DeleteHomework(_ context.Context, id int) error {
	return repo.db.delete(id)
}

func (repo *homeworkRepository) DeleteHomeworks(_ context.Context, filter school.HomeworkFilter) error {
	if filter.IsEmpty() {
		return errEmptyFilter
	}
	repo.db.deleteWhere(homeworkMatcher(filter))
	return nil
}

// NewSchoolRepositories returns the school repositories over db.
func NewSchoolRepositories(db *DB) school.Repositories {
	return school.Repositories{
		Classes:   NewClassRepository(db),
		Subjects:  NewSubjectRepository(db),
		Schedules: NewScheduleRepository(db),
		Grades:    NewGradeRepository(db),
		Homeworks: NewHomeworkRepository(db),
		Students:  NewStudentRepository(db),
	}
}
