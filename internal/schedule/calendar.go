package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay reads "HH:MM" in 24-hour form.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return NewTimeOfDay(hour, minute), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

type Hours struct {
	Open  TimeOfDay
	Close TimeOfDay
}

type Window struct {
	OpensAt  time.Time
	ClosesAt time.Time
}

// Contains reports whether t falls in [OpensAt, ClosesAt).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.OpensAt) && t.Before(w.ClosesAt)
}

func (w Window) Length() time.Duration {
	return w.ClosesAt.Sub(w.OpensAt)
}

// Calendar maps each weekday to its opening hours in a fixed location.
type Calendar struct {
	loc  *time.Location
	week [7]Hours
}

// DefaultWeek is Sunday 13:30-19:30 and Monday to Saturday 09:30-18:00.
func DefaultWeek() [7]Hours {
	var week [7]Hours
	for day := time.Sunday; day <= time.Saturday; day++ {
		week[day] = Hours{Open: NewTimeOfDay(9, 30), Close: NewTimeOfDay(18, 0)}
	}
	week[time.Sunday] = Hours{Open: NewTimeOfDay(13, 30), Close: NewTimeOfDay(19, 30)}
	return week
}

func NewCalendar(loc *time.Location, week [7]Hours) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, week: week}
}

func DefaultCalendar(loc *time.Location) *Calendar {
	return NewCalendar(loc, DefaultWeek())
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) HoursFor(day time.Weekday) Hours {
	return c.week[day]
}

// WindowFor returns the open window on t's calendar date in the calendar's location.
func (c *Calendar) WindowFor(t time.Time) Window {
	local := t.In(c.loc)
	hours := c.week[local.Weekday()]
	year, month, day := local.Date()
	return Window{
		OpensAt:  time.Date(year, month, day, hours.Open.Hour(), hours.Open.Minute(), 0, 0, c.loc),
		ClosesAt: time.Date(year, month, day, hours.Close.Hour(), hours.Close.Minute(), 0, 0, c.loc),
	}
}

// NextDayWindow returns the window of the calendar day after t.
func (c *Calendar) NextDayWindow(t time.Time) Window {
	local := t.In(c.loc)
	year, month, day := local.Date()
	return c.WindowFor(time.Date(year, month, day+1, 12, 0, 0, 0, c.loc))
}
