// Package policy decides whether a principal may act on a resource.
//
// Every check loads the target resource first, so a missing resource is reported
// as its NotFoundError even when the principal would not have been allowed anyway.
// ADMIN then always passes; other roles pass only through an ownership chain
// (teacher -> subject, student -> class -> subject, parent -> student -> class).
// Anything else is core.ErrForbidden.
package policy

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
)

// Check names an authorization rule.
type Check string

const (
	// AdminOnly passes only ADMIN principals.
	AdminOnly Check = "hasRoleAdmin"
	// ManageSubject passes the teacher of the subject.
	ManageSubject Check = "teacherHasSubjectOrRoleIsAdmin"
	// ManageGrade passes the teacher of the grade's subject.
	ManageGrade Check = "teacherHasGradeOrRoleIsAdmin"
	// ManageHomework passes the teacher of the homework's subject.
	ManageHomework Check = "teacherHasHomeworkOrRoleIsAdmin"
	// ViewSubject passes students of the subject's class.
	ViewSubject Check = "hasRoleAdminOrStudentThatInClassThatContainsSubject"
	// ViewClass passes students of the class and parents having a child in it.
	ViewClass Check = "hasRoleAdminOrStudentFromClassOrParentThatHasStudentInClass"
	// ViewStudent passes the student, their parent and the teachers of their class.
	ViewStudent Check = "hasRoleAdminOrStudentOrParentOrTeacherOfStudent"
)

type (
	ClassGetter interface {
		GetByID(ctx context.Context, id int) (school.Class, error)
	}

	SubjectGetter interface {
		GetByID(ctx context.Context, id int) (school.Subject, error)
		QueryByTeacher(ctx context.Context, teacherID int) ([]school.Subject, error)
	}

	GradeGetter interface {
		GetByID(ctx context.Context, id int) (school.Grade, error)
	}

	HomeworkGetter interface {
		GetByID(ctx context.Context, id int) (school.Homework, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id int) (user.Student, error)
		QueryStudents(ctx context.Context, filter user.StudentFilter) ([]user.Student, error)
	}
)

// rule decides for one Check. id is the id of the resource the check is about.
type rule func(ctx context.Context, e *Engine, p user.Principal, id int) error

var rules = map[Check]rule{
	AdminOnly:      hasRoleAdmin,
	ManageSubject:  teacherHasSubject,
	ManageGrade:    teacherHasGrade,
	ManageHomework: teacherHasHomework,
	ViewSubject:    studentInClassContainingSubject,
	ViewClass:      studentOrParentInClass,
	ViewStudent:    studentRelative,
}

type Engine struct {
	classes   ClassGetter
	subjects  SubjectGetter
	grades    GradeGetter
	homeworks HomeworkGetter
	students  StudentGetter
}

func NewEngine(classes ClassGetter, subjects SubjectGetter, grades GradeGetter, homeworks HomeworkGetter, students StudentGetter) *Engine {
	return &Engine{
		classes:   classes,
		subjects:  subjects,
		grades:    grades,
		homeworks: homeworks,
		students:  students,
	}
}

// NewSchoolEngine builds an Engine over the school services.
func NewSchoolEngine(svcs *school.Services, students StudentGetter) *Engine {
	return NewEngine(svcs.Classes, svcs.Subjects, svcs.Grades, svcs.Homeworks, students)
}

// Authorize returns nil when p passes check on the resource id,
// the NotFoundError of the resource when it does not exist, or core.ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, check Check, p user.Principal, id int) error {
	r, ok := rules[check]
	if !ok {
		return errors.Errorf("unknown policy check %q", check)
	}
	return r(ctx, e, p, id)
}

// AuthorizeAny passes when any of checks passes.
// Errors other than core.ErrForbidden (a missing resource) are returned right away.
func (e *Engine) AuthorizeAny(ctx context.Context, p user.Principal, id int, checks ...Check) error {
	for _, check := range checks {
		err := e.Authorize(ctx, check, p, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrForbidden) {
			return err
		}
	}
	return core.ErrForbidden
}

// self loads the student row of a STUDENT principal.
// A principal whose row is gone is denied rather than reported as not found.
func (e *Engine) self(ctx context.Context, p user.Principal) (user.Student, error) {
	s, err := e.students.GetStudent(ctx, p.ID)
	if err != nil {
		if errors.Is(err, user.ErrStudentNotFound) {
			return user.Student{}, core.ErrForbidden
		}
		return user.Student{}, err
	}
	return s, nil
}

func hasRoleAdmin(_ context.Context, _ *Engine, p user.Principal, _ int) error {
	if p.IsAdmin() {
		return nil
	}
	return core.ErrForbidden
}

// subjectTaughtBy loads the subject and passes ADMIN and its teacher.
func subjectTaughtBy(ctx context.Context, e *Engine, p user.Principal, subjectID int) error {
	s, err := e.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}
	if p.IsAdmin() || (p.IsTeacher() && s.TeacherID == p.ID) {
		return nil
	}
	return core.ErrForbidden
}

func teacherHasSubject(ctx context.Context, e *Engine, p user.Principal, id int) error {
	return subjectTaughtBy(ctx, e, p, id)
}

func teacherHasGrade(ctx context.Context, e *Engine, p user.Principal, id int) error {
	g, err := e.grades.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return subjectTaughtBy(ctx, e, p, g.SubjectID)
}

func teacherHasHomework(ctx context.Context, e *Engine, p user.Principal, id int) error {
	h, err := e.homeworks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return subjectTaughtBy(ctx, e, p, h.SubjectID)
}

func studentInClassContainingSubject(ctx context.Context, e *Engine, p user.Principal, id int) error {
	subj, err := e.subjects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	if !p.IsStudent() || subj.ClassID == nil {
		return core.ErrForbidden
	}
	s, err := e.self(ctx, p)
	if err != nil {
		return err
	}
	if s.ClassID != nil && *s.ClassID == *subj.ClassID {
		return nil
	}
	return core.ErrForbidden
}

func studentOrParentInClass(ctx context.Context, e *Engine, p user.Principal, id int) error {
	c, err := e.classes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch p.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleStudent:
		s, err := e.self(ctx, p)
		if err != nil {
			return err
		}
		if s.ClassID != nil && *s.ClassID == c.ID {
			return nil
		}
	case user.RoleParent:
		children, err := e.students.QueryStudents(ctx, user.StudentFilter{ParentID: &p.ID})
		if err != nil {
			return errors.Wrap(err, "querying children")
		}
		for _, child := range children {
			if child.ClassID != nil && *child.ClassID == c.ID {
				return nil
			}
		}
	}
	return core.ErrForbidden
}

func studentRelative(ctx context.Context, e *Engine, p user.Principal, id int) error {
	s, err := e.students.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	switch p.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleStudent:
		if s.ID == p.ID {
			return nil
		}
	case user.RoleParent:
		if s.ParentID != nil && *s.ParentID == p.ID {
			return nil
		}
	case user.RoleTeacher:
		if s.ClassID == nil {
			break
		}
		subjects, err := e.subjects.QueryByTeacher(ctx, p.ID)
		if err != nil {
			if errors.Is(err, user.ErrTeacherNotFound) {
				return core.ErrForbidden
			}
			return err
		}
		for _, subj := range subjects {
			if subj.ClassID != nil && *subj.ClassID == *s.ClassID {
				return nil
			}
		}
	}
	return core.ErrForbidden
}
