// Package scheduler fires reminder jobs at their target wall-clock time.
// Pending jobs live in the scheduled_jobs table, not in memory, so they
// survive a process restart; the loop here only polls and fires.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkazakova/remindbot/internal/models"
)

type jobStore interface {
	Add(ctx context.Context, jobID string, runAt time.Time, eventID int64) error
	Remove(ctx context.Context, jobID string) (bool, error)
	ClaimDue(ctx context.Context, now time.Time) ([]models.ScheduledJob, error)
}

// EventFirer runs one scheduled dispatch for an event id.
type EventFirer interface {
	FireScheduled(ctx context.Context, eventID int64) error
}

type Scheduler struct {
	jobs     jobStore
	interval time.Duration
	loc      *time.Location
	log      zerolog.Logger
	notifyCh chan struct{}
}

func New(jobs jobStore, interval time.Duration, loc *time.Location, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		loc:      loc,
		log:      log,
		notifyCh: make(chan struct{}, 1),
	}
}

// JobID keys a job by event identity. One pending job per event, replaced
// on conflict, is what makes parallel dispatch of the same event impossible.
func JobID(eventID int64) string {
	return fmt.Sprintf("event-%d", eventID)
}

// Schedule persists the event's reminder job, replacing any pending one.
func (s *Scheduler) Schedule(ctx context.Context, event *models.Event) error {
	if event.NextReminder.IsZero() {
		return fmt.Errorf("event %d has no reminder time", event.EventID)
	}
	return s.jobs.Add(ctx, JobID(event.EventID), event.NextReminder, event.EventID)
}

// Cancel removes the event's pending job if it has not fired yet. A job
// already in flight completes and writes its audit row regardless.
func (s *Scheduler) Cancel(ctx context.Context, eventID int64) (bool, error) {
	return s.jobs.Remove(ctx, JobID(eventID))
}

// Notify triggers an immediate check. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the firing loop until ctx is cancelled. Dispatch work is
// synchronous on this goroutine: firings are sparse (at most one per event
// per day), and a hanging transport blocking the loop is an accepted
// degradation for this workload.
func (s *Scheduler) Start(ctx context.Context, firer EventFirer) {
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx, firer)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx, firer)
		case <-s.notifyCh:
			s.check(ctx, firer)
		}
	}
}

func (s *Scheduler) check(ctx context.Context, firer EventFirer) {
	now := time.Now().In(s.loc)
	jobs, err := s.jobs.ClaimDue(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to claim due jobs")
		return
	}

	for _, job := range jobs {
		s.log.Info().
			Str("job_id", job.JobID).
			Int64("event_id", job.EventID).
			Time("run_at", job.RunAt).
			Msg("firing reminder job")
		if err := firer.FireScheduled(ctx, job.EventID); err != nil {
			s.log.Error().Err(err).Str("job_id", job.JobID).Msg("job dispatch failed")
		}
	}
}
