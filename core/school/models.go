package school

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shkola/core"
)

// DateLayout is the layout of grade dates and homework deadlines in payloads.
const DateLayout = "2006-01-02"

type Class struct {
	ID          int       `json:"id"`
	Letter      string    `json:"letter"`
	Number      int       `json:"number"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Name returns the usual class name: number followed by letter (eg. "6А").
func (c Class) Name() string {
	return fmt.Sprintf("%d%s", c.Number, c.Letter)
}

type NewClass struct {
	Letter      string `json:"letter" validate:"required,classletter"`
	Number      int    `json:"number" validate:"required,min=1,max=11"`
	Description string `json:"description" validate:"max=1000"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Letter = core.CleanString(nc.Letter)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Nil or empty fields are left unchanged.
type UpdateClass struct {
	Letter      string  `json:"letter" validate:"omitempty,classletter"`
	Number      *int    `json:"number" validate:"omitempty,min=1,max=11"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Letter = core.CleanString(uc.Letter)
	if uc.Description != nil {
		d := core.CleanString(*uc.Description)
		uc.Description = &d
	}
	return validate.Struct(uc)
}

type Subject struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	ClassID     *int      `json:"class_id"`
	TeacherID   int       `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewSubject struct {
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"max=100"`
	Code        string `json:"code" validate:"max=36"` // generated when empty
	Description string `json:"description" validate:"max=1000"`
	ClassID     *int   `json:"class_id" validate:"omitempty,gt=0"`
	TeacherID   int    `json:"teacher_id" validate:"required,gt=0"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Type = core.CleanString(ns.Type)
	ns.Code = core.CleanString(ns.Code)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// Nil or empty fields are left unchanged.
type UpdateSubject struct {
	Name        string  `json:"name" validate:"max=100"`
	Type        *string `json:"type" validate:"omitempty,max=100"`
	Code        string  `json:"code" validate:"max=36"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	ClassID     *int    `json:"class_id" validate:"omitempty,gt=0"`
	TeacherID   *int    `json:"teacher_id" validate:"omitempty,gt=0"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Code = core.CleanString(us.Code)
	if us.Type != nil {
		t := core.CleanString(*us.Type)
		us.Type = &t
	}
	if us.Description != nil {
		d := core.CleanString(*us.Description)
		us.Description = &d
	}
	return validate.Struct(us)
}

type SubjectFilter struct {
	ClassID   *int
	TeacherID *int
	Name      string
	Code      string
}

type Schedule struct {
	ID        int       `json:"id"`
	Day       Weekday   `json:"day"`
	StartTime string    `json:"start_time"` // HH:MM
	Classroom int       `json:"classroom"`
	ClassID   int       `json:"class_id"`
	SubjectID int       `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	type schedule Schedule
	return json.Marshal(struct {
		schedule
		DayName string `json:"day_name"`
	}{schedule(s), s.Day.Name()})
}

type NewSchedule struct {
	Day       int    `json:"day" validate:"required,min=1,max=5"`
	StartTime string `json:"start_time" validate:"required,clock"`
	Classroom int    `json:"classroom" validate:"required,min=1,max=300"`
	ClassID   int    `json:"class_id" validate:"required,gt=0"`
	SubjectID int    `json:"subject_id" validate:"required,gt=0"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.StartTime = core.CleanString(ns.StartTime)
	return validate.Struct(ns)
}

type UpdateSchedule struct {
	Day       *int   `json:"day" validate:"omitempty,min=1,max=5"`
	StartTime string `json:"start_time" validate:"omitempty,clock"`
	Classroom *int   `json:"classroom" validate:"omitempty,min=1,max=300"`
	ClassID   *int   `json:"class_id" validate:"omitempty,gt=0"`
	SubjectID *int   `json:"subject_id" validate:"omitempty,gt=0"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	us.StartTime = core.CleanString(us.StartTime)
	return validate.Struct(us)
}

type ScheduleFilter struct {
	ClassID   *int
	SubjectID *int
}

func (f ScheduleFilter) IsEmpty() bool { return f.ClassID == nil && f.SubjectID == nil }

type Grade struct {
	ID        int       `json:"id"`
	Mark      int       `json:"mark"`
	Date      time.Time `json:"date"`
	Comment   string    `json:"comment"`
	StudentID int       `json:"student_id"`
	SubjectID int       `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewGrade struct {
	Mark      int    `json:"mark" validate:"required,min=1,max=5"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"` // today when empty
	Comment   string `json:"comment" validate:"max=1000"`
	StudentID int    `json:"student_id" validate:"required,gt=0"`
	SubjectID int    `json:"subject_id" validate:"required,gt=0"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Date = core.CleanString(ng.Date)
	ng.Comment = core.CleanString(ng.Comment)
	return validate.Struct(ng)
}

type UpdateGrade struct {
	Mark    *int    `json:"mark" validate:"omitempty,min=1,max=5"`
	Date    string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Date = core.CleanString(ug.Date)
	if ug.Comment != nil {
		c := core.CleanString(*ug.Comment)
		ug.Comment = &c
	}
	return validate.Struct(ug)
}

type GradeFilter struct {
	StudentID *int
	SubjectID *int
}

func (f GradeFilter) IsEmpty() bool { return f.StudentID == nil && f.SubjectID == nil }

type Homework struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	ClassID     int       `json:"class_id"`
	SubjectID   int       `json:"subject_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewHomework struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Deadline    string `json:"deadline" validate:"required,datetime=2006-01-02"`
	ClassID     int    `json:"class_id" validate:"required,gt=0"`
	SubjectID   int    `json:"subject_id" validate:"required,gt=0"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	nh.Deadline = core.CleanString(nh.Deadline)
	return validate.Struct(nh)
}

type UpdateHomework struct {
	Title       string  `json:"title" validate:"max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Deadline    string  `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
}

func (uh *UpdateHomework) Validate(validate *validator.Validate) error {
	uh.Title = core.CleanString(uh.Title)
	uh.Deadline = core.CleanString(uh.Deadline)
	if uh.Description != nil {
		d := core.CleanString(*uh.Description)
		uh.Description = &d
	}
	return validate.Struct(uh)
}

type HomeworkFilter struct {
	ClassID   *int
	SubjectID *int
}

func (f HomeworkFilter) IsEmpty() bool { return f.ClassID == nil && f.SubjectID == nil }

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
