package repository

import (
	"context"
	"time"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
)

type JobRepository struct {
	db *database.DB
}

func NewJobRepository(db *database.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Add persists a pending job. Re-adding an existing job id replaces the
// pending run time instead of duplicating the job.
func (r *JobRepository) Add(ctx context.Context, jobID string, runAt time.Time, eventID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO scheduled_jobs (job_id, run_at, event_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (job_id) DO UPDATE SET run_at = EXCLUDED.run_at, event_id = EXCLUDED.event_id`,
		jobID, runAt, eventID,
	)
	return err
}

// Remove deletes a pending job, reporting whether one existed. A job that
// already fired is simply gone; that is not an error.
func (r *JobRepository) Remove(ctx context.Context, jobID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scheduled_jobs WHERE job_id = $1`, jobID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimDue atomically removes and returns every job whose run time has
// passed. Claiming by delete means a job fires at most once per process
// even if the poll loop overlaps with a concurrent removal.
func (r *JobRepository) ClaimDue(ctx context.Context, now time.Time) ([]models.ScheduledJob, error) {
	rows, err := r.db.Pool.Query(ctx,
		`DELETE FROM scheduled_jobs WHERE run_at <= $1
		 RETURNING job_id, run_at, event_id`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ScheduledJob
	for rows.Next() {
		var job models.ScheduledJob
		if err := rows.Scan(&job.JobID, &job.RunAt, &job.EventID); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
