package engine

import (
	"context"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/orchids/queue-dashboard/internal/domain"
)

// statusFromTask maps asynq task states onto the dashboard status
// vocabulary. Retry counts as failed (the task has failed at least once);
// archived tasks are classified by their last error.
func statusFromTask(t *asynq.TaskInfo) domain.JobStatus {
	switch t.State {
	case asynq.TaskStateActive:
		return domain.StatusProcessing
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateAggregating:
		return domain.StatusPending
	case asynq.TaskStateCompleted:
		return domain.StatusCompleted
	case asynq.TaskStateRetry:
		return domain.StatusFailed
	case asynq.TaskStateArchived:
		return classifyArchived(t.LastErr)
	}
	return domain.StatusFailed
}

func classifyArchived(lastErr string) domain.JobStatus {
	switch {
	case strings.Contains(lastErr, context.DeadlineExceeded.Error()),
		strings.Contains(lastErr, "timeout"):
		return domain.StatusTimedOut
	case strings.Contains(lastErr, context.Canceled.Error()):
		return domain.StatusCancelled
	}
	return domain.StatusFailed
}
