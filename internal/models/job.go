package models

import "time"

// ScheduledJob is one pending "fire a reminder at run_at" record.
// Jobs are keyed by job id with replace-on-conflict semantics, so an event
// has at most one pending job at any time.
type ScheduledJob struct {
	JobID   string    `json:"job_id"`
	RunAt   time.Time `json:"run_at"`
	EventID int64     `json:"event_id"`
}
