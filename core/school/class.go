package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
)

type ClassService struct {
	base
}

func (svc *ClassService) QueryAll(ctx context.Context) ([]Class, error) {
	cs, err := svc.repos.Classes.QueryAllClasses(ctx)
	return cs, errors.Wrap(err, "querying classes")
}

func (svc *ClassService) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.getClass(ctx, id)
}

// checkUniqueness checks that no class other than excludedID is letter+number.
func (svc *ClassService) checkUniqueness(ctx context.Context, letter string, number, excludedID int) error {
	c, err := svc.repos.Classes.GetClassByLetterAndNumber(ctx, letter, number)
	switch {
	case errors.Is(err, core.ErrNoRecord):
		return nil
	case err != nil:
		return errors.Wrap(err, "getting class by letter and number")
	case c.ID != excludedID:
		return classAlreadyExists(letter, number)
	}
	return nil
}

func (svc *ClassService) Create(ctx context.Context, nc NewClass) (Class, error) {
	var c Class
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := svc.checkUniqueness(ctx, nc.Letter, nc.Number, 0); err != nil {
			return err
		}

		now := NowFunc().UTC()
		var err error
		c, err = svc.repos.Classes.CreateClass(ctx, Class{
			Letter:      nc.Letter,
			Number:      nc.Number,
			Description: nc.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if errors.Is(err, core.ErrConflict) {
			return classAlreadyExists(nc.Letter, nc.Number)
		}
		return errors.Wrap(err, "creating class")
	})
	return c, err
}

func (svc *ClassService) Update(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	var c Class
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = svc.getClass(ctx, id); err != nil {
			return err
		}

		renamed := false
		if uc.Letter != "" && uc.Letter != c.Letter {
			c.Letter = uc.Letter
			renamed = true
		}
		if uc.Number != nil && *uc.Number != c.Number {
			c.Number = *uc.Number
			renamed = true
		}
		if uc.Description != nil {
			c.Description = *uc.Description
		}
		if renamed {
			if err = svc.checkUniqueness(ctx, c.Letter, c.Number, c.ID); err != nil {
				return err
			}
		}
		c.UpdatedAt = NowFunc().UTC()

		letter, number := c.Letter, c.Number
		c, err = svc.repos.Classes.UpdateClass(ctx, c)
		if errors.Is(err, core.ErrConflict) {
			return classAlreadyExists(letter, number)
		}
		return errors.Wrap(err, "updating class")
	})
	if err != nil {
		return Class{}, err
	}
	return c, nil
}

// Delete deletes a class with its schedules and homeworks.
// Its students and subjects are kept, detached from the class.
func (svc *ClassService) Delete(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getClass(ctx, id); err != nil {
			return err
		}
		if err := svc.repos.Schedules.DeleteSchedules(ctx, ScheduleFilter{ClassID: &id}); err != nil {
			return errors.Wrap(err, "deleting schedules")
		}
		if err := svc.repos.Homeworks.DeleteHomeworks(ctx, HomeworkFilter{ClassID: &id}); err != nil {
			return errors.Wrap(err, "deleting homeworks")
		}
		if err := svc.repos.Students.ClearClass(ctx, id); err != nil {
			return errors.Wrap(err, "detaching students")
		}
		if err := svc.repos.Subjects.ClearClass(ctx, id); err != nil {
			return errors.Wrap(err, "detaching subjects")
		}
		return errors.Wrap(svc.repos.Classes.DeleteClass(ctx, id), "deleting class")
	})
}

// AddStudents moves the given students to a class.
// The class and every student must exist, otherwise nothing is changed.
func (svc *ClassService) AddStudents(ctx context.Context, classID int, studentIDs []int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getClass(ctx, classID); err != nil {
			return err
		}
		ids := core.UniqueInts(studentIDs)
		for _, id := range ids {
			if _, err := svc.people.GetStudent(ctx, id); err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return errors.Wrap(svc.repos.Students.SetStudentsClass(ctx, &classID, ids...), "setting students class")
	})
}

// AddSubjects moves the given subjects to a class.
// The class and every subject must exist and no two subjects of the class may share a name,
// otherwise nothing is changed.
func (svc *ClassService) AddSubjects(ctx context.Context, classID int, subjectIDs []int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := svc.getClass(ctx, classID)
		if err != nil {
			return err
		}

		ids := core.UniqueInts(subjectIDs)
		subjects := make([]Subject, 0, len(ids))
		for _, id := range ids {
			s, err := svc.getSubject(ctx, id)
			if err != nil {
				return err
			}
			subjects = append(subjects, s)
		}

		names := make(map[string]struct{}, len(subjects))
		for _, s := range subjects {
			if _, ok := names[s.Name]; ok {
				return subjectAlreadyExists(s.Name, c)
			}
			names[s.Name] = struct{}{}
			if err = svc.checkSubjectName(ctx, s, c); err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return nil
		}

		err = svc.repos.Subjects.SetSubjectsClass(ctx, &classID, ids...)
		if errors.Is(err, core.ErrConflict) {
			return core.NewAlreadyExistsError("subject", "in class "+c.Name())
		}
		return errors.Wrap(err, "setting subjects class")
	})
}

// Students returns the students of an existing class.
func (svc *ClassService) Students(ctx context.Context, classID int) ([]user.Student, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.people.QueryStudents(ctx, user.StudentFilter{ClassID: &classID})
}

// Subjects returns the subjects of an existing class.
func (svc *ClassService) Subjects(ctx context.Context, classID int) ([]Subject, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	ss, err := svc.repos.Subjects.FilterSubjects(ctx, SubjectFilter{ClassID: &classID})
	return ss, errors.Wrap(err, "filtering subjects")
}
