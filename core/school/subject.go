package school

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
)

func subjectCodeExists(code string) error {
	return core.NewAlreadyExistsError("subject", "with code "+code)
}

type SubjectService struct {
	base
}

func (svc *SubjectService) QueryAll(ctx context.Context) ([]Subject, error) {
	ss, err := svc.repos.Subjects.FilterSubjects(ctx, SubjectFilter{})
	return ss, errors.Wrap(err, "querying subjects")
}

func (svc *SubjectService) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.getSubject(ctx, id)
}

// QueryByTeacher returns the subjects of an existing teacher.
func (svc *SubjectService) QueryByTeacher(ctx context.Context, teacherID int) ([]Subject, error) {
	if _, err := svc.people.GetPerson(ctx, user.RoleTeacher, teacherID); err != nil {
		return nil, err
	}
	ss, err := svc.repos.Subjects.FilterSubjects(ctx, SubjectFilter{TeacherID: &teacherID})
	return ss, errors.Wrap(err, "filtering subjects")
}

// QueryByClass returns the subjects of an existing class.
func (svc *SubjectService) QueryByClass(ctx context.Context, classID int) ([]Subject, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	ss, err := svc.repos.Subjects.FilterSubjects(ctx, SubjectFilter{ClassID: &classID})
	return ss, errors.Wrap(err, "filtering subjects")
}

func (svc *SubjectService) checkCode(ctx context.Context, s Subject) error {
	dups, err := svc.repos.Subjects.FilterSubjects(ctx, SubjectFilter{Code: s.Code})
	if err != nil {
		return errors.Wrap(err, "filtering subjects")
	}
	for _, dup := range dups {
		if dup.ID != s.ID {
			return subjectCodeExists(s.Code)
		}
	}
	return nil
}

// validate checks, in order: the class exists, the teacher exists,
// the name is free within the class and the code is free.
func (svc *SubjectService) validate(ctx context.Context, s Subject) error {
	var (
		c   Class
		err error
	)
	if s.ClassID != nil {
		if c, err = svc.getClass(ctx, *s.ClassID); err != nil {
			return err
		}
	}
	if _, err = svc.people.GetPerson(ctx, user.RoleTeacher, s.TeacherID); err != nil {
		return err
	}
	if s.ClassID != nil {
		if err = svc.checkSubjectName(ctx, s, c); err != nil {
			return err
		}
	}
	return svc.checkCode(ctx, s)
}

func (svc *SubjectService) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	var s Subject
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := NowFunc().UTC()
		s = Subject{
			Name:        ns.Name,
			Type:        ns.Type,
			Code:        ns.Code,
			Description: ns.Description,
			ClassID:     ns.ClassID,
			TeacherID:   ns.TeacherID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if s.Code == "" {
			s.Code = uuid.NewString()
		}
		if err := svc.validate(ctx, s); err != nil {
			return err
		}

		var err error
		s, err = svc.repos.Subjects.CreateSubject(ctx, s)
		if errors.Is(err, core.ErrConflict) {
			return core.NewAlreadyExistsError("subject", ns.Name)
		}
		return errors.Wrap(err, "creating subject")
	})
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (svc *SubjectService) Update(ctx context.Context, id int, us UpdateSubject) (Subject, error) {
	var s Subject
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if s, err = svc.getSubject(ctx, id); err != nil {
			return err
		}

		if us.Name != "" {
			s.Name = us.Name
		}
		if us.Type != nil {
			s.Type = *us.Type
		}
		if us.Code != "" {
			s.Code = us.Code
		}
		if us.Description != nil {
			s.Description = *us.Description
		}
		if us.ClassID != nil {
			s.ClassID = us.ClassID
		}
		if us.TeacherID != nil {
			s.TeacherID = *us.TeacherID
		}
		if err = svc.validate(ctx, s); err != nil {
			return err
		}
		s.UpdatedAt = NowFunc().UTC()

		name := s.Name
		s, err = svc.repos.Subjects.UpdateSubject(ctx, s)
		if errors.Is(err, core.ErrConflict) {
			return core.NewAlreadyExistsError("subject", name)
		}
		return errors.Wrap(err, "updating subject")
	})
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

// Delete deletes a subject with its schedules, homeworks and grades.
func (svc *SubjectService) Delete(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getSubject(ctx, id); err != nil {
			return err
		}
		return svc.deleteSubjectCascade(ctx, id)
	})
}
