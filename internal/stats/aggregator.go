// Package stats computes system-wide dashboard aggregates by scanning every
// queue the engine reports. The scan is deliberately naive: one queue listing
// plus two engine calls per queue, no caching, capped at 1000 queues and 1000
// items per queue. Queues holding more items are undercounted by design.
package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/internal/engine"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

const (
	maxQueues        = 1000
	maxItemsPerQueue = 1000

	// activityPerQueue bounds how many of a queue's newest items feed the
	// recent-activity projection.
	activityPerQueue = 10

	defaultJobsLimit     = 100
	defaultActivityLimit = 20
)

type Aggregator struct {
	engine  engine.Engine
	clients func() int
	log     *logger.Logger
}

// NewAggregator builds an aggregator over the given engine. eng may be nil
// (degraded mode), in which case every computation returns empty results.
// clientCount supplies the live real-time connection count; nil means zero.
func NewAggregator(eng engine.Engine, clientCount func() int, log *logger.Logger) *Aggregator {
	if clientCount == nil {
		clientCount = func() int { return 0 }
	}
	return &Aggregator{engine: eng, clients: clientCount, log: log}
}

// ComputeSystemStats walks all queues and buckets their items into the
// dashboard's active/failed classification. It fails only when the queue
// listing itself fails; a failure on any single queue's item fetch is logged
// and that queue contributes zero to the totals.
func (a *Aggregator) ComputeSystemStats(ctx context.Context) (domain.StatsSnapshot, error) {
	snapshot := domain.StatsSnapshot{Engine: map[string]interface{}{}}
	snapshot.ConnectedClients = a.clients()

	if a.engine == nil {
		return snapshot, nil
	}

	queues, err := a.engine.GetAllQueues(ctx)
	if err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("failed to aggregate system stats: %w", err)
	}
	if len(queues) > maxQueues {
		queues = queues[:maxQueues]
	}

	snapshot.TotalQueues = len(queues)

	for _, q := range queues {
		items, err := a.engine.GetQueueItems(ctx, q.ID, maxItemsPerQueue, 0)
		if err != nil {
			a.log.Warn(ctx, "skipping queue in stats aggregation", map[string]interface{}{
				"queue_id": q.ID,
				"error":    err.Error(),
			})
			continue
		}

		snapshot.TotalJobs += q.Size
		for _, job := range items {
			switch {
			case job.Status.IsActive():
				snapshot.ActiveJobs++
			case job.Status.IsFailed():
				snapshot.FailedJobs++
			}
		}
	}

	engineStats, err := a.engine.SystemStats(ctx)
	if err != nil {
		a.log.Warn(ctx, "failed to fetch engine system stats", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		snapshot.Engine = engineStats
	}

	return snapshot, nil
}

// AllJobs returns jobs across every queue, each annotated with its queue id
// and name, sorted by creation time descending and truncated to limit. The
// sort is stable: jobs with equal timestamps keep their per-queue
// enumeration order.
func (a *Aggregator) AllJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = defaultJobsLimit
	}

	if a.engine == nil {
		return []domain.Job{}, nil
	}

	queues, err := a.engine.GetAllQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	if len(queues) > maxQueues {
		queues = queues[:maxQueues]
	}

	jobs := make([]domain.Job, 0)
	for _, q := range queues {
		items, err := a.engine.GetQueueItems(ctx, q.ID, maxItemsPerQueue, 0)
		if err != nil {
			a.log.Warn(ctx, "skipping queue in job listing", map[string]interface{}{
				"queue_id": q.ID,
				"error":    err.Error(),
			})
			continue
		}
		for _, job := range items {
			job.QueueName = q.Name
			jobs = append(jobs, job)
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// RecentActivity projects the newest items of every queue (at most ten per
// queue) into activity entries, sorted by timestamp descending and truncated
// to limit.
func (a *Aggregator) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityItem, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	if a.engine == nil {
		return []domain.ActivityItem{}, nil
	}

	queues, err := a.engine.GetAllQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	if len(queues) > maxQueues {
		queues = queues[:maxQueues]
	}

	activity := make([]domain.ActivityItem, 0)
	for _, q := range queues {
		// The engine enumerates items in state order, not by recency, so
		// fetch the full window and pick the newest ten ourselves.
		items, err := a.engine.GetQueueItems(ctx, q.ID, maxItemsPerQueue, 0)
		if err != nil {
			a.log.Warn(ctx, "skipping queue in recent activity", map[string]interface{}{
				"queue_id": q.ID,
				"error":    err.Error(),
			})
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		if len(items) > activityPerQueue {
			items = items[:activityPerQueue]
		}
		for _, job := range items {
			activity = append(activity, domain.ActivityItem{
				Type:        "Job",
				Description: fmt.Sprintf("Job %s in queue %s", job.ID, q.Name),
				Status:      job.Status,
				Timestamp:   job.CreatedAt,
				QueueID:     q.ID,
			})
		}
	}

	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].Timestamp.After(activity[j].Timestamp)
	})

	if len(activity) > limit {
		activity = activity[:limit]
	}
	return activity, nil
}
