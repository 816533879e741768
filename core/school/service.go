package school

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrClassNotFound    = core.NewNotFoundError("class", "", nil)
	ErrSubjectNotFound  = core.NewNotFoundError("subject", "", nil)
	ErrScheduleNotFound = core.NewNotFoundError("schedule", "", nil)
	ErrGradeNotFound    = core.NewNotFoundError("grade", "", nil)
	ErrHomeworkNotFound = core.NewNotFoundError("homework", "", nil)

	ErrClassAlreadyExists   = core.NewAlreadyExistsError("class", "")
	ErrSubjectAlreadyExists = core.NewAlreadyExistsError("subject", "")
)

func ClassNotFound(id int) error    { return core.NewNotFoundError("class", "id", id) }
func SubjectNotFound(id int) error  { return core.NewNotFoundError("subject", "id", id) }
func ScheduleNotFound(id int) error { return core.NewNotFoundError("schedule", "id", id) }
func GradeNotFound(id int) error    { return core.NewNotFoundError("grade", "id", id) }
func HomeworkNotFound(id int) error { return core.NewNotFoundError("homework", "id", id) }

func classAlreadyExists(letter string, number int) error {
	return core.NewAlreadyExistsError("class", fmt.Sprintf("%d%s", number, letter))
}

func subjectAlreadyExists(name string, class Class) error {
	return core.NewAlreadyExistsError("subject", fmt.Sprintf("%q in class %s", name, class.Name()))
}

// notFound translates core.ErrNoRecord into notFoundErr and wraps any other error.
func notFound(err, notFoundErr error, action string) error {
	if errors.Is(err, core.ErrNoRecord) {
		return notFoundErr
	}
	return errors.Wrap(err, action)
}

// base holds what every school service works with.
type base struct {
	tx     core.Transactor
	repos  Repositories
	people People
}

func (b base) getClass(ctx context.Context, id int) (Class, error) {
	c, err := b.repos.Classes.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, notFound(err, ClassNotFound(id), "getting class")
	}
	return c, nil
}

func (b base) getSubject(ctx context.Context, id int) (Subject, error) {
	s, err := b.repos.Subjects.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, notFound(err, SubjectNotFound(id), "getting subject")
	}
	return s, nil
}

// checkSubjectName checks that no subject other than s.ID is named s.Name in class c.
func (b base) checkSubjectName(ctx context.Context, s Subject, c Class) error {
	dups, err := b.repos.Subjects.FilterSubjects(ctx, SubjectFilter{ClassID: &c.ID, Name: s.Name})
	if err != nil {
		return errors.Wrap(err, "filtering subjects")
	}
	for _, dup := range dups {
		if dup.ID != s.ID {
			return subjectAlreadyExists(s.Name, c)
		}
	}
	return nil
}

// deleteSubjectCascade deletes a subject with its schedules, homeworks and grades.
func (b base) deleteSubjectCascade(ctx context.Context, id int) error {
	if err := b.repos.Schedules.DeleteSchedules(ctx, ScheduleFilter{SubjectID: &id}); err != nil {
		return errors.Wrap(err, "deleting schedules")
	}
	if err := b.repos.Homeworks.DeleteHomeworks(ctx, HomeworkFilter{SubjectID: &id}); err != nil {
		return errors.Wrap(err, "deleting homeworks")
	}
	if err := b.repos.Grades.DeleteGrades(ctx, GradeFilter{SubjectID: &id}); err != nil {
		return errors.Wrap(err, "deleting grades")
	}
	return errors.Wrap(b.repos.Subjects.DeleteSubject(ctx, id), "deleting subject")
}

// Services groups the school services.
type Services struct {
	Classes   *ClassService
	Subjects  *SubjectService
	Schedules *ScheduleService
	Grades    *GradeService
	Homeworks *HomeworkService

	base
}

var _ user.DependentsRemover = (*Services)(nil)

func NewServices(tx core.Transactor, repos Repositories, people People, mailSvc core.EmailService, logger core.Logger) *Services {
	b := base{tx: tx, repos: repos, people: people}
	return &Services{
		Classes:   &ClassService{base: b},
		Subjects:  &SubjectService{base: b},
		Schedules: &ScheduleService{base: b},
		Grades:    &GradeService{base: b, mailSvc: mailSvc, logger: logger},
		Homeworks: &HomeworkService{base: b},
		base:      b,
	}
}

// RemoveDependents deletes the subjects (with their records) of a teacher
// and the grades of a student. It runs in the caller's transaction.
func (svcs *Services) RemoveDependents(ctx context.Context, p user.Principal) error {
	switch p.Role {
	case user.RoleTeacher:
		subjects, err := svcs.repos.Subjects.FilterSubjects(ctx, SubjectFilter{TeacherID: &p.ID})
		if err != nil {
			return errors.Wrap(err, "filtering subjects")
		}
		for _, s := range subjects {
			if err = svcs.deleteSubjectCascade(ctx, s.ID); err != nil {
				return err
			}
		}
	case user.RoleStudent:
		if err := svcs.repos.Grades.DeleteGrades(ctx, GradeFilter{StudentID: &p.ID}); err != nil {
			return errors.Wrap(err, "deleting grades")
		}
	}
	return nil
}
