package queue

import (
	"context"
	"math"
	"time"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NobodyServing is reported when no ticket at the branch is in service.
const NobodyServing = "None"

type BranchStatus struct {
	Branch           models.Branch `json:"branch"`
	NowServing       string        `json:"now_serving"`
	WaitTimeMinutes  int           `json:"wait_time_minutes"`
	PeopleWaiting    int           `json:"people_waiting"`
	IsPhysicallyOpen bool          `json:"is_physically_open"`
	NextOpeningText  string        `json:"next_opening_text,omitempty"`
	OpensAt          time.Time     `json:"opens_at"`
	ClosesAt         time.Time     `json:"closes_at"`
	CurrentTime      time.Time     `json:"current_time"`
}

func (s *Service) BranchStatus(ctx context.Context, branch models.Branch) (BranchStatus, error) {
	ctx, span := s.tracer.Start(ctx, "queue.BranchStatus", trace.WithAttributes(attribute.String("branch", string(branch))))
	defer span.End()

	if _, ok := models.LookupBranch(branch); !ok {
		return BranchStatus{}, store.ErrBranchNotFound
	}
	active, err := s.store.ListActiveQueue(ctx, branch)
	if err != nil {
		return BranchStatus{}, err
	}
	now := s.clock.Now()
	return s.summarise(branch, active, now), nil
}

func (s *Service) summarise(branch models.Branch, active []models.Ticket, now time.Time) BranchStatus {
	calendar := s.scheduler.Calendar()
	window := calendar.WindowFor(now)
	status := BranchStatus{
		Branch:           branch,
		NowServing:       NobodyServing,
		PeopleWaiting:    len(active),
		IsPhysicallyOpen: window.Contains(now),
		OpensAt:          window.OpensAt,
		ClosesAt:         window.ClosesAt,
		CurrentTime:      now,
	}

	for _, ticket := range active {
		if ticket.Status == models.StatusInService {
			status.NowServing = ticket.QueueNumber
			break
		}
	}

	if n := len(active); n > 0 {
		remaining := active[n-1].EstimatedEndTime().Sub(now)
		status.WaitTimeMinutes = int(math.Max(0, math.Ceil(remaining.Minutes())))
	}

	if !status.IsPhysicallyOpen {
		if now.Before(window.OpensAt) {
			status.NextOpeningText = "Opening today at " + window.OpensAt.Format("15:04")
		} else {
			next := calendar.NextDayWindow(now)
			status.NextOpeningText = "Opening tomorrow at " + next.OpensAt.Format("15:04")
		}
	}
	return status
}
