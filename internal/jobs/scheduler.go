package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
)

// WeeklyEnqueuer queues the weekly generation task.
type WeeklyEnqueuer interface {
	EnqueueWeekly(ctx context.Context, trigger domain.JobTrigger) (*domain.GenerationJob, error)
}

// WeeklyTrigger fires once per weekly trigger point (Sunday 00:00 local time
// by default). It is driven by a Worker; a tick that arrives late still fires
// for the point it missed, and a point is never queued twice. Points that pass
// while the process is down are skipped.
type WeeklyTrigger struct {
	enqueuer WeeklyEnqueuer
	metrics  *metrics.Metrics
	weekday  time.Weekday
	hour     int
	minute   int
	now      func() time.Time

	mu   sync.Mutex
	next time.Time
}

func NewWeeklyTrigger(enqueuer WeeklyEnqueuer, m *metrics.Metrics) *WeeklyTrigger {
	return &WeeklyTrigger{
		enqueuer: enqueuer,
		metrics:  m,
		weekday:  time.Sunday,
		now:      time.Now,
	}
}

// NextWeekly returns the first weekday/hour:minute strictly after t, in t's location.
func NextWeekly(t time.Time, weekday time.Weekday, hour, minute int) time.Time {
	candidate := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
	days := (int(weekday) - int(t.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, days)
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// Next reports the upcoming trigger point.
func (s *WeeklyTrigger) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	return s.next
}

func (s *WeeklyTrigger) init() {
	if s.next.IsZero() {
		s.next = NextWeekly(s.now(), s.weekday, s.hour, s.minute)
		log.Printf("scheduler: next weekly run at %s", s.next.Format(time.RFC3339))
	}
}

// ProcessJobs enqueues the weekly task when the trigger point has been reached.
func (s *WeeklyTrigger) ProcessJobs(ctx context.Context) error {
	s.mu.Lock()
	s.init()
	now := s.now()
	if now.Before(s.next) {
		s.mu.Unlock()
		return nil
	}
	fired := s.next
	s.next = NextWeekly(now, s.weekday, s.hour, s.minute)
	s.mu.Unlock()

	log.Printf("scheduler: starting weekly contest generation for %s", fired.Format(time.RFC3339))
	s.metrics.ScheduleTriggered()

	job, err := s.enqueuer.EnqueueWeekly(ctx, domain.JobTriggerSchedule)
	if err != nil {
		// retry the same point on the next tick
		s.mu.Lock()
		s.next = fired
		s.mu.Unlock()
		return fmt.Errorf("failed to enqueue weekly task: %w", err)
	}
	log.Printf("scheduler: weekly task queued as job %s", job.ID)
	return nil
}
