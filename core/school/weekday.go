package school

import "github.com/pkg/errors"

// Weekday is a school day: Monday (1) to Friday (5).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var (
	weekdayNames = map[Weekday]string{
		Monday:    "Понедельник",
		Tuesday:   "Вторник",
		Wednesday: "Среда",
		Thursday:  "Четверг",
		Friday:    "Пятница",
	}

	errInvalidWeekday = errors.New("day must be between 1 (Monday) and 5 (Friday)")
)

// ParseWeekday validates that d is a school day.
func ParseWeekday(d int) (Weekday, error) {
	wd := Weekday(d)
	if !wd.Valid() {
		return 0, errInvalidWeekday
	}
	return wd, nil
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

// Name returns the display name of d, or "" when d is not a school day.
func (d Weekday) Name() string {
	return weekdayNames[d]
}
