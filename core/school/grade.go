package school

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
)

type GradeService struct {
	base
	mailSvc core.EmailService
	logger  core.Logger
}

func (svc *GradeService) filter(ctx context.Context, filter GradeFilter) ([]Grade, error) {
	gs, err := svc.repos.Grades.FilterGrades(ctx, filter)
	return gs, errors.Wrap(err, "filtering grades")
}

func (svc *GradeService) QueryAll(ctx context.Context) ([]Grade, error) {
	return svc.filter(ctx, GradeFilter{})
}

// QueryForStudent returns the grades of an existing student.
func (svc *GradeService) QueryForStudent(ctx context.Context, studentID int) ([]Grade, error) {
	if _, err := svc.people.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, GradeFilter{StudentID: &studentID})
}

// QueryForStudentWithSubject returns the grades of an existing student in an existing subject.
func (svc *GradeService) QueryForStudentWithSubject(ctx context.Context, studentID, subjectID int) ([]Grade, error) {
	if _, err := svc.people.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := svc.getSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, GradeFilter{StudentID: &studentID, SubjectID: &subjectID})
}

// QueryForSubject returns the grades given in an existing subject.
func (svc *GradeService) QueryForSubject(ctx context.Context, subjectID int) ([]Grade, error) {
	if _, err := svc.getSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, GradeFilter{SubjectID: &subjectID})
}

func (svc *GradeService) GetByID(ctx context.Context, id int) (Grade, error) {
	g, err := svc.repos.Grades.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, notFound(err, GradeNotFound(id), "getting grade")
	}
	return g, nil
}

// Create checks, in order, that the student and the subject exist, records the grade
// and notifies the student and their parent.
func (svc *GradeService) Create(ctx context.Context, ng NewGrade) (Grade, error) {
	now := NowFunc().UTC()
	date := now.Truncate(24 * time.Hour)
	if ng.Date != "" {
		var err error
		if date, err = parseDate(ng.Date); err != nil {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "must be a date formatted as YYYY-MM-DD"})
		}
	}

	var g Grade
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		student, err := svc.people.GetStudent(ctx, ng.StudentID)
		if err != nil {
			return err
		}
		subject, err := svc.getSubject(ctx, ng.SubjectID)
		if err != nil {
			return err
		}

		g, err = svc.repos.Grades.CreateGrade(ctx, Grade{
			Mark:      ng.Mark,
			Date:      date,
			Comment:   ng.Comment,
			StudentID: ng.StudentID,
			SubjectID: ng.SubjectID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "creating grade")
		}

		return svc.mailSvc.SendMessages(svc.gradePostedMessage(ctx, g, student, subject))
	})
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

// gradePostedMessage addresses the student, with their parent in Cc when the parent can be loaded.
func (svc *GradeService) gradePostedMessage(ctx context.Context, g Grade, student user.Student, subject Subject) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName(), Address: student.Email}},
		Subject:      "New grade in " + subject.Name,
		TemplateName: "grade_posted",
		TemplateData: map[string]interface{}{
			"StudentName": student.FullName(),
			"Subject":     subject.Name,
			"Date":        g.Date.Format(DateLayout),
			"Mark":        strconv.Itoa(g.Mark),
			"Comment":     g.Comment,
		},
	}
	if student.ParentID != nil {
		parent, err := svc.people.GetPerson(ctx, user.RoleParent, *student.ParentID)
		if err != nil {
			svc.logger.Warn("grade notification sent without parent", map[string]interface{}{
				"student_id": student.ID,
				"parent_id":  *student.ParentID,
				"error":      err.Error(),
			})
			return msg
		}
		msg.Cc = append(msg.Cc, mail.Address{Name: parent.FullName(), Address: parent.Email})
	}
	return msg
}

func (svc *GradeService) Update(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	var g Grade
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if g, err = svc.GetByID(ctx, id); err != nil {
			return err
		}

		if ug.Mark != nil {
			g.Mark = *ug.Mark
		}
		if ug.Date != "" {
			if g.Date, err = parseDate(ug.Date); err != nil {
				return core.NewValidationError(err, core.FieldError{Field: "date", Error: "must be a date formatted as YYYY-MM-DD"})
			}
		}
		if ug.Comment != nil {
			g.Comment = *ug.Comment
		}
		g.UpdatedAt = NowFunc().UTC()

		g, err = svc.repos.Grades.UpdateGrade(ctx, g)
		return errors.Wrap(err, "updating grade")
	})
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

func (svc *GradeService) Delete(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.Wrap(svc.repos.Grades.DeleteGrade(ctx, id), "deleting grade")
	})
}
