package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusTimedOut   JobStatus = "timed_out"
	StatusCancelled  JobStatus = "cancelled"
)

// IsActive reports whether the status counts toward the dashboard's
// "active jobs" bucket. Completed and cancelled jobs belong to neither
// bucket.
func (s JobStatus) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// IsFailed reports whether the status counts toward the "failed jobs" bucket.
func (s JobStatus) IsFailed() bool {
	return s == StatusFailed || s == StatusTimedOut
}

type Job struct {
	ID        string          `json:"id"`
	QueueID   string          `json:"queueId"`
	QueueName string          `json:"queueName,omitempty"`
	Data      json.RawMessage `json:"data"`
	Status    JobStatus       `json:"status"`
	Priority  int             `json:"priority"`
	CreatedAt time.Time       `json:"createdAt"`
}
