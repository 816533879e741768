package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
)

type HomeworkService struct {
	base
}

func (svc *HomeworkService) filter(ctx context.Context, filter HomeworkFilter) ([]Homework, error) {
	hs, err := svc.repos.Homeworks.FilterHomeworks(ctx, filter)
	return hs, errors.Wrap(err, "filtering homeworks")
}

func (svc *HomeworkService) QueryAll(ctx context.Context) ([]Homework, error) {
	return svc.filter(ctx, HomeworkFilter{})
}

// QueryByClass returns the homeworks of an existing class.
func (svc *HomeworkService) QueryByClass(ctx context.Context, classID int) ([]Homework, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, HomeworkFilter{ClassID: &classID})
}

// QueryBySubject returns the homeworks of an existing subject.
func (svc *HomeworkService) QueryBySubject(ctx context.Context, subjectID int) ([]Homework, error) {
	if _, err := svc.getSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, HomeworkFilter{SubjectID: &subjectID})
}

func (svc *HomeworkService) QueryByClassAndSubject(ctx context.Context, classID, subjectID int) ([]Homework, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	if _, err := svc.getSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, HomeworkFilter{ClassID: &classID, SubjectID: &subjectID})
}

func (svc *HomeworkService) GetByID(ctx context.Context, id int) (Homework, error) {
	h, err := svc.repos.Homeworks.GetHomeworkByID(ctx, id)
	if err != nil {
		return Homework{}, notFound(err, HomeworkNotFound(id), "getting homework")
	}
	return h, nil
}

func deadlineError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "deadline", Error: "must be a date formatted as YYYY-MM-DD"})
}

// Create checks, in order, that the class and the subject exist before recording the homework.
func (svc *HomeworkService) Create(ctx context.Context, nh NewHomework) (Homework, error) {
	deadline, err := parseDate(nh.Deadline)
	if err != nil {
		return Homework{}, deadlineError(err)
	}

	var h Homework
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.getClass(ctx, nh.ClassID); err != nil {
			return err
		}
		if _, err := svc.getSubject(ctx, nh.SubjectID); err != nil {
			return err
		}

		now := NowFunc().UTC()
		var err error
		h, err = svc.repos.Homeworks.CreateHomework(ctx, Homework{
			Title:       nh.Title,
			Description: nh.Description,
			Deadline:    deadline,
			ClassID:     nh.ClassID,
			SubjectID:   nh.SubjectID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return errors.Wrap(err, "creating homework")
	})
	if err != nil {
		return Homework{}, err
	}
	return h, nil
}

func (svc *HomeworkService) Update(ctx context.Context, id int, uh UpdateHomework) (Homework, error) {
	var h Homework
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if h, err = svc.GetByID(ctx, id); err != nil {
			return err
		}

		if uh.Title != "" {
			h.Title = uh.Title
		}
		if uh.Description != nil {
			h.Description = *uh.Description
		}
		if uh.Deadline != "" {
			if h.Deadline, err = parseDate(uh.Deadline); err != nil {
				return deadlineError(err)
			}
		}
		h.UpdatedAt = NowFunc().UTC()

		h, err = svc.repos.Homeworks.UpdateHomework(ctx, h)
		return errors.Wrap(err, "updating homework")
	})
	if err != nil {
		return Homework{}, err
	}
	return h, nil
}

func (svc *HomeworkService) Delete(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.Wrap(svc.repos.Homeworks.DeleteHomework(ctx, id), "deleting homework")
	})
}
