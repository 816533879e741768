package school

import (
	"context"

	"github.com/trezcool/shkola/core/user"
)

// Repositories return core.ErrNoRecord when a lookup matches no row
// and core.ErrConflict when a write violates a unique constraint.
// Bulk deletes refuse an empty filter.
type (
	ClassRepository interface {
		CreateClass(ctx context.Context, c Class) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		GetClassByLetterAndNumber(ctx context.Context, letter string, number int) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		DeleteClass(ctx context.Context, id int) error
	}

	SubjectRepository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		// FilterSubjects applies AND operation on available SubjectFilter fields.
		FilterSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		// SetSubjectsClass sets (or clears, when classID is nil) the class of the given subjects.
		SetSubjectsClass(ctx context.Context, classID *int, ids ...int) error
		// ClearClass detaches every subject of a class.
		ClearClass(ctx context.Context, classID int) error
		DeleteSubject(ctx context.Context, id int) error
	}

	ScheduleRepository interface {
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		// FilterSchedules returns schedules ordered by day then start time.
		FilterSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
		GetScheduleByID(ctx context.Context, id int) (Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, id int) error
		DeleteSchedules(ctx context.Context, filter ScheduleFilter) error
	}

	GradeRepository interface {
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		// FilterGrades returns grades ordered by date then id.
		FilterGrades(ctx context.Context, filter GradeFilter) ([]Grade, error)
		GetGradeByID(ctx context.Context, id int) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade) (Grade, error)
		DeleteGrade(ctx context.Context, id int) error
		DeleteGrades(ctx context.Context, filter GradeFilter) error
	}

	HomeworkRepository interface {
		CreateHomework(ctx context.Context, h Homework) (Homework, error)
		// FilterHomeworks returns homeworks ordered by deadline then id.
		FilterHomeworks(ctx context.Context, filter HomeworkFilter) ([]Homework, error)
		GetHomeworkByID(ctx context.Context, id int) (Homework, error)
		UpdateHomework(ctx context.Context, h Homework) (Homework, error)
		DeleteHomework(ctx context.Context, id int) error
		DeleteHomeworks(ctx context.Context, filter HomeworkFilter) error
	}

	Repositories struct {
		Classes   ClassRepository
		Subjects  SubjectRepository
		Schedules ScheduleRepository
		Grades    GradeRepository
		Homeworks HomeworkRepository
		Students  user.StudentRepository
	}

	// People looks up the persons school records reference.
	// It is implemented by *user.Service.
	People interface {
		GetPerson(ctx context.Context, role user.Role, id int) (user.Person, error)
		GetStudent(ctx context.Context, id int) (user.Student, error)
		QueryStudents(ctx context.Context, filter user.StudentFilter) ([]user.Student, error)
	}
)

var _ People = (*user.Service)(nil)
