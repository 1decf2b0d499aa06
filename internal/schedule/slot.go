package schedule

import (
	"errors"
	"time"
)

// ErrDegradedSchedule is returned with a best-effort start when no window could fit the service.
var ErrDegradedSchedule = errors.New("no slot fits the service within the search bound")

const maxSlotSearchDays = 14

type Scheduler struct {
	calendar *Calendar
}

func NewScheduler(calendar *Calendar) *Scheduler {
	return &Scheduler{calendar: calendar}
}

func (s *Scheduler) Calendar() *Calendar {
	return s.calendar
}

// FindSlot returns the earliest start at or after earliest where the whole
// duration fits inside a single day's open window. After maxSlotSearchDays
// rolls it gives up and returns the last candidate with ErrDegradedSchedule.
func (s *Scheduler) FindSlot(earliest time.Time, duration time.Duration) (time.Time, error) {
	candidate := earliest.In(s.calendar.Location())
	for attempt := 0; attempt < maxSlotSearchDays; attempt++ {
		window := s.calendar.WindowFor(candidate)
		if candidate.Before(window.OpensAt) {
			candidate = window.OpensAt
		}
		projectedEnd := candidate.Add(duration)
		if !candidate.Before(window.ClosesAt) || projectedEnd.After(window.ClosesAt) {
			candidate = s.calendar.NextDayWindow(candidate).OpensAt
			continue
		}
		return candidate, nil
	}
	return candidate, ErrDegradedSchedule
}
