package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazakova/remindbot/internal/models"
)

type fakeJobStore struct {
	mu      sync.Mutex
	added   map[string]models.ScheduledJob
	removed []string
	due     []models.ScheduledJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{added: make(map[string]models.ScheduledJob)}
}

func (f *fakeJobStore) Add(ctx context.Context, jobID string, runAt time.Time, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[jobID] = models.ScheduledJob{JobID: jobID, RunAt: runAt, EventID: eventID}
	return nil
}

func (f *fakeJobStore) Remove(ctx context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, jobID)
	_, ok := f.added[jobID]
	delete(f.added, jobID)
	return ok, nil
}

func (f *fakeJobStore) ClaimDue(ctx context.Context, now time.Time) ([]models.ScheduledJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeJobStore) setDue(jobs []models.ScheduledJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.due = jobs
}

type fakeFirer struct {
	fired chan int64
}

func (f *fakeFirer) FireScheduled(ctx context.Context, eventID int64) error {
	f.fired <- eventID
	return nil
}

func newTestScheduler(jobs *fakeJobStore) *Scheduler {
	return New(jobs, time.Hour, time.UTC, zerolog.Nop())
}

func TestJobID(t *testing.T) {
	assert.Equal(t, "event-42", JobID(42))
}

func TestScheduleReplacesPendingJob(t *testing.T) {
	jobs := newFakeJobStore()
	s := newTestScheduler(jobs)

	event := &models.Event{
		EventID:      7,
		NextReminder: time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Schedule(context.Background(), event))

	event.NextReminder = time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Schedule(context.Background(), event))

	// One job per event, keyed by id, latest run time wins.
	require.Len(t, jobs.added, 1)
	assert.Equal(t, event.NextReminder, jobs.added["event-7"].RunAt)
}

func TestScheduleRejectsZeroReminder(t *testing.T) {
	s := newTestScheduler(newFakeJobStore())
	err := s.Schedule(context.Background(), &models.Event{EventID: 7})
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	jobs := newFakeJobStore()
	s := newTestScheduler(jobs)

	event := &models.Event{EventID: 7, NextReminder: time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Schedule(context.Background(), event))

	removed, err := s.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNotifyTriggersImmediateFire(t *testing.T) {
	jobs := newFakeJobStore()
	s := newTestScheduler(jobs)
	firer := &fakeFirer{fired: make(chan int64, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, firer)

	// The startup check claims nothing; queue a due job and nudge.
	jobs.setDue([]models.ScheduledJob{{JobID: "event-7", EventID: 7, RunAt: time.Now()}})
	s.Notify()

	select {
	case id := <-firer.fired:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not fired after Notify")
	}
}

func TestNotifyDoesNotBlockWhenPending(t *testing.T) {
	s := newTestScheduler(newFakeJobStore())
	// Without a running loop the channel holds one pending nudge; further
	// calls must return immediately.
	s.Notify()
	s.Notify()
	s.Notify()
}
