package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/orchids/queue-dashboard/internal/config"
	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

const (
	// queueRegistryKey is the Redis hash carrying dashboard-level queue
	// metadata (name, description, max size). asynq queues are implicit;
	// the registry is what makes createQueue/deleteQueue explicit calls.
	queueRegistryKey = "dashboard:queues"

	// maxItemsPerFetch bounds every per-queue item listing. Queues with
	// more outstanding items are undercounted by design.
	maxItemsPerFetch = 1000

	completedRetention = 24 * time.Hour
	defaultMaxRetry    = 3
)

// queueMeta is the registry record for one queue.
type queueMeta struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MaxSize     int       `json:"max_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Client is the concrete engine client. It holds an asynq client for
// enqueueing, an inspector for queue state, and a raw Redis connection for
// the metadata registry and the event bus.
type Client struct {
	asynq     *asynq.Client
	inspector *asynq.Inspector
	rdb       *redis.Client
	log       *logger.Logger
}

var _ Engine = (*Client)(nil)

func NewClient(cfg config.RedisConfig, log *logger.Logger) (*Client, error) {
	opt := asynq.RedisClientOpt{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("unable to connect to queue engine: %w", err)
	}

	return &Client{
		asynq:     asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		rdb:       rdb,
		log:       log,
	}, nil
}

func (c *Client) Close() error {
	return errors.Join(c.asynq.Close(), c.inspector.Close(), c.rdb.Close())
}

func (c *Client) CreateQueue(ctx context.Context, spec domain.QueueSpec) (*domain.Queue, error) {
	exists, err := c.rdb.HExists(ctx, queueRegistryKey, spec.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check queue registry: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueExists, spec.ID)
	}

	maxSize := spec.MaxSize
	if maxSize <= 0 {
		maxSize = domain.DefaultMaxSize
	}

	meta := queueMeta{
		Name:        spec.Name,
		Description: spec.Description,
		MaxSize:     maxSize,
		CreatedAt:   time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue metadata: %w", err)
	}

	if err := c.rdb.HSet(ctx, queueRegistryKey, spec.ID, metaBytes).Err(); err != nil {
		return nil, fmt.Errorf("failed to register queue: %w", err)
	}

	queue := &domain.Queue{
		ID:          spec.ID,
		Name:        meta.Name,
		Description: meta.Description,
		MaxSize:     meta.MaxSize,
		CreatedAt:   meta.CreatedAt,
	}

	c.publish(ctx, domain.EventQueueCreated, queue)
	return queue, nil
}

func (c *Client) DeleteQueue(ctx context.Context, queueID string) error {
	if err := c.inspector.DeleteQueue(queueID, true); err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		return fmt.Errorf("failed to delete queue: %w", err)
	}

	if err := c.rdb.HDel(ctx, queueRegistryKey, queueID).Err(); err != nil {
		return fmt.Errorf("failed to deregister queue: %w", err)
	}

	c.publish(ctx, domain.EventQueueDeleted, map[string]interface{}{"queueId": queueID})
	return nil
}

func (c *Client) PauseQueue(ctx context.Context, queueID, reason string) error {
	if err := c.inspector.PauseQueue(queueID); err != nil {
		return fmt.Errorf("failed to pause queue: %w", err)
	}

	c.publish(ctx, domain.EventQueuePaused, map[string]interface{}{
		"queueId": queueID,
		"reason":  reason,
	})
	return nil
}

func (c *Client) ResumeQueue(ctx context.Context, queueID string) error {
	if err := c.inspector.UnpauseQueue(queueID); err != nil {
		return fmt.Errorf("failed to resume queue: %w", err)
	}

	c.publish(ctx, domain.EventQueueResumed, map[string]interface{}{"queueId": queueID})
	return nil
}

func (c *Client) GetAllQueues(ctx context.Context) ([]domain.Queue, error) {
	metaRaw, err := c.rdb.HGetAll(ctx, queueRegistryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load queue registry: %w", err)
	}

	names, err := c.inspector.Queues()
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	byID := make(map[string]*domain.Queue, len(metaRaw)+len(names))
	for id, raw := range metaRaw {
		var meta queueMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			c.log.Warn(ctx, "skipping malformed queue registry entry", map[string]interface{}{
				"queue_id": id,
				"error":    err.Error(),
			})
			continue
		}
		byID[id] = &domain.Queue{
			ID:          id,
			Name:        meta.Name,
			Description: meta.Description,
			MaxSize:     meta.MaxSize,
			CreatedAt:   meta.CreatedAt,
		}
	}

	// Queues the engine knows about but the dashboard never registered
	// (e.g. created directly by workers) still show up, named by their id.
	for _, name := range names {
		if _, ok := byID[name]; !ok {
			byID[name] = &domain.Queue{ID: name, Name: name, MaxSize: domain.DefaultMaxSize}
		}
	}

	queues := make([]domain.Queue, 0, len(byID))
	for id, q := range byID {
		info, err := c.inspector.GetQueueInfo(id)
		if err != nil {
			if !errors.Is(err, asynq.ErrQueueNotFound) {
				c.log.Warn(ctx, "failed to fetch queue info", map[string]interface{}{
					"queue_id": id,
					"error":    err.Error(),
				})
			}
		} else {
			q.Size = info.Size
			q.Paused = info.Paused
		}
		queues = append(queues, *q)
	}

	sort.Slice(queues, func(i, j int) bool { return queues[i].ID < queues[j].ID })
	return queues, nil
}

// GetQueueItems lists a window of a queue's items, walking the engine's task
// states in a fixed order: active, pending, scheduled, retry, archived,
// completed. At most maxItemsPerFetch items are ever fetched.
func (c *Client) GetQueueItems(ctx context.Context, queueID string, limit, offset int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	want := offset + limit
	if want > maxItemsPerFetch {
		want = maxItemsPerFetch
	}

	lists := []func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		c.inspector.ListActiveTasks,
		c.inspector.ListPendingTasks,
		c.inspector.ListScheduledTasks,
		c.inspector.ListRetryTasks,
		c.inspector.ListArchivedTasks,
		c.inspector.ListCompletedTasks,
	}

	jobs := make([]domain.Job, 0, want)
	for _, list := range lists {
		if len(jobs) >= want {
			break
		}
		tasks, err := list(queueID, asynq.PageSize(want-len(jobs)))
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				// Registered but never enqueued to; no items yet.
				break
			}
			return nil, fmt.Errorf("failed to list queue items: %w", err)
		}
		for _, t := range tasks {
			jobs = append(jobs, c.jobFromTask(queueID, t))
		}
	}

	if offset >= len(jobs) {
		return []domain.Job{}, nil
	}
	end := offset + limit
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[offset:end], nil
}

func (c *Client) jobFromTask(queueID string, t *asynq.TaskInfo) domain.Job {
	env := decodeEnvelope(t.Payload)
	return domain.Job{
		ID:        t.ID,
		QueueID:   queueID,
		Data:      env.Data,
		Status:    statusFromTask(t),
		Priority:  env.Priority,
		CreatedAt: env.EnqueuedAt,
	}
}

func (c *Client) AddJob(ctx context.Context, queueID string, data json.RawMessage, priority int) (*domain.Job, error) {
	meta, err := c.queueMeta(ctx, queueID)
	if err != nil {
		return nil, err
	}

	if meta.MaxSize > 0 {
		if info, err := c.inspector.GetQueueInfo(queueID); err == nil && info.Size >= meta.MaxSize {
			return nil, fmt.Errorf("queue %s is full (max %d items)", queueID, meta.MaxSize)
		}
	}

	now := time.Now().UTC()
	task, err := newJobTask(data, priority, now)
	if err != nil {
		return nil, err
	}

	info, err := c.asynq.EnqueueContext(ctx, task,
		asynq.Queue(queueID),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Retention(completedRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	job := &domain.Job{
		ID:        info.ID,
		QueueID:   queueID,
		Data:      data,
		Status:    domain.StatusPending,
		Priority:  priority,
		CreatedAt: now,
	}

	c.publish(ctx, domain.EventJobAdded, job)
	return job, nil
}

func (c *Client) CancelJob(ctx context.Context, queueID, jobID string) error {
	info, err := c.inspector.GetTaskInfo(queueID, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return fmt.Errorf("failed to look up job: %w", err)
	}

	if info.State == asynq.TaskStateActive {
		// Signals the worker's context; the task leaves the active set
		// once the worker observes the cancellation.
		if err := c.inspector.CancelProcessing(jobID); err != nil {
			return fmt.Errorf("failed to cancel running job: %w", err)
		}
	} else {
		if err := c.inspector.DeleteTask(queueID, jobID); err != nil {
			return fmt.Errorf("failed to cancel job: %w", err)
		}
	}

	c.publish(ctx, domain.EventJobCancelled, map[string]interface{}{
		"queueId": queueID,
		"jobId":   jobID,
	})
	return nil
}

func (c *Client) queueMeta(ctx context.Context, queueID string) (*queueMeta, error) {
	raw, err := c.rdb.HGet(ctx, queueRegistryKey, queueID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, queueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue metadata: %w", err)
	}

	var meta queueMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode queue metadata: %w", err)
	}
	return &meta, nil
}

func (c *Client) Workers(ctx context.Context) ([]WorkerInfo, error) {
	servers, err := c.inspector.Servers()
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	workers := make([]WorkerInfo, 0, len(servers))
	for _, srv := range servers {
		workers = append(workers, WorkerInfo{
			ID:          srv.ID,
			Host:        srv.Host,
			PID:         srv.PID,
			Concurrency: srv.Concurrency,
			Queues:      srv.Queues,
			Started:     srv.Started.UTC().Format(time.RFC3339),
			ActiveTasks: len(srv.ActiveWorkers),
		})
	}
	return workers, nil
}

// SystemStats returns the engine's own view of the system: lifetime
// processed/failed counters and worker server count. The aggregator merges
// these under its locally computed totals.
func (c *Client) SystemStats(ctx context.Context) (map[string]interface{}, error) {
	names, err := c.inspector.Queues()
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	var processed, failed int
	for _, name := range names {
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil {
			c.log.Warn(ctx, "failed to fetch queue info for system stats", map[string]interface{}{
				"queue_id": name,
				"error":    err.Error(),
			})
			continue
		}
		processed += info.ProcessedTotal
		failed += info.FailedTotal
	}

	workerCount := 0
	if servers, err := c.inspector.Servers(); err == nil {
		workerCount = len(servers)
	}

	return map[string]interface{}{
		"engine":         "asynq",
		"processedTotal": processed,
		"failedTotal":    failed,
		"workerServers":  workerCount,
	}, nil
}

func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("engine health check failed: %w", err)
	}
	latency := time.Since(start)

	queueCount := 0
	if names, err := c.inspector.Queues(); err == nil {
		queueCount = len(names)
	}

	return map[string]interface{}{
		"status": "healthy",
		"redis": map[string]interface{}{
			"connected": true,
			"latencyMs": latency.Milliseconds(),
		},
		"queues":    queueCount,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
