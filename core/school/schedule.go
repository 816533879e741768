package school

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
)

type ScheduleService struct {
	base
}

// sortSchedules orders schedules by day, then start time, then id.
func sortSchedules(ss []Schedule) {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Day != ss[j].Day {
			return ss[i].Day < ss[j].Day
		}
		if ss[i].StartTime != ss[j].StartTime {
			return ss[i].StartTime < ss[j].StartTime
		}
		return ss[i].ID < ss[j].ID
	})
}

func (svc *ScheduleService) filter(ctx context.Context, filter ScheduleFilter) ([]Schedule, error) {
	ss, err := svc.repos.Schedules.FilterSchedules(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "filtering schedules")
	}
	sortSchedules(ss)
	return ss, nil
}

func (svc *ScheduleService) QueryAll(ctx context.Context) ([]Schedule, error) {
	return svc.filter(ctx, ScheduleFilter{})
}

// QueryByClass returns the weekly timetable of an existing class.
func (svc *ScheduleService) QueryByClass(ctx context.Context, classID int) ([]Schedule, error) {
	if _, err := svc.getClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.filter(ctx, ScheduleFilter{ClassID: &classID})
}

func (svc *ScheduleService) GetByID(ctx context.Context, id int) (Schedule, error) {
	s, err := svc.repos.Schedules.GetScheduleByID(ctx, id)
	if err != nil {
		return Schedule{}, notFound(err, ScheduleNotFound(id), "getting schedule")
	}
	return s, nil
}

// normalizeSchedule checks the day and start time of s, in addition to the DTO validation.
func normalizeSchedule(s *Schedule) error {
	if !s.Day.Valid() {
		return core.NewValidationError(errInvalidWeekday, core.FieldError{Field: "day", Error: errInvalidWeekday.Error()})
	}
	start, err := core.NormalizeClock(s.StartTime)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "start_time", Error: "must be a time of day formatted as HH:MM"})
	}
	s.StartTime = start
	return nil
}

// checkRefs checks, in order, that the class and the subject of s exist.
func (svc *ScheduleService) checkRefs(ctx context.Context, s Schedule) error {
	if _, err := svc.getClass(ctx, s.ClassID); err != nil {
		return err
	}
	_, err := svc.getSubject(ctx, s.SubjectID)
	return err
}

func (svc *ScheduleService) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	now := NowFunc().UTC()
	s := Schedule{
		Day:       Weekday(ns.Day),
		StartTime: ns.StartTime,
		Classroom: ns.Classroom,
		ClassID:   ns.ClassID,
		SubjectID: ns.SubjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := normalizeSchedule(&s); err != nil {
		return Schedule{}, err
	}

	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := svc.checkRefs(ctx, s); err != nil {
			return err
		}
		var err error
		s, err = svc.repos.Schedules.CreateSchedule(ctx, s)
		return errors.Wrap(err, "creating schedule")
	})
	if err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func (svc *ScheduleService) Update(ctx context.Context, id int, us UpdateSchedule) (Schedule, error) {
	var s Schedule
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if s, err = svc.GetByID(ctx, id); err != nil {
			return err
		}

		if us.Day != nil {
			s.Day = Weekday(*us.Day)
		}
		if us.StartTime != "" {
			s.StartTime = us.StartTime
		}
		if us.Classroom != nil {
			s.Classroom = *us.Classroom
		}
		if us.ClassID != nil {
			s.ClassID = *us.ClassID
		}
		if us.SubjectID != nil {
			s.SubjectID = *us.SubjectID
		}
		if err = normalizeSchedule(&s); err != nil {
			return err
		}
		if err = svc.checkRefs(ctx, s); err != nil {
			return err
		}
		s.UpdatedAt = NowFunc().UTC()

		s, err = svc.repos.Schedules.UpdateSchedule(ctx, s)
		return errors.Wrap(err, "updating schedule")
	})
	if err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func (svc *ScheduleService) Delete(ctx context.Context, id int) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.Wrap(svc.repos.Schedules.DeleteSchedule(ctx, id), "deleting schedule")
	})
}
