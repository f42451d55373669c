package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/internal/engine"
	"github.com/orchids/queue-dashboard/internal/stats"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeEngine records mutations and serves canned queue/job state.
type fakeEngine struct {
	queues    []domain.Queue
	queuesErr error

	items    map[string][]domain.Job
	itemsErr map[string]error

	health    map[string]interface{}
	healthErr error

	workers []engine.WorkerInfo

	created    []domain.QueueSpec
	deleted    []string
	paused     map[string]string
	resumed    []string
	cancelled  []string
	addedJobs  []domain.Job
	mutateErr  error

	lastLimit  int
	lastOffset int
}

var _ engine.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		items:    make(map[string][]domain.Job),
		itemsErr: make(map[string]error),
		paused:   make(map[string]string),
	}
}

func (f *fakeEngine) CreateQueue(ctx context.Context, spec domain.QueueSpec) (*domain.Queue, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	f.created = append(f.created, spec)
	return &domain.Queue{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		MaxSize:     spec.MaxSize,
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeEngine) DeleteQueue(ctx context.Context, queueID string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, queueID)
	return nil
}

func (f *fakeEngine) PauseQueue(ctx context.Context, queueID, reason string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.paused[queueID] = reason
	return nil
}

func (f *fakeEngine) ResumeQueue(ctx context.Context, queueID string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.resumed = append(f.resumed, queueID)
	return nil
}

func (f *fakeEngine) GetAllQueues(ctx context.Context) ([]domain.Queue, error) {
	if f.queuesErr != nil {
		return nil, f.queuesErr
	}
	return f.queues, nil
}

func (f *fakeEngine) GetQueueItems(ctx context.Context, queueID string, limit, offset int) ([]domain.Job, error) {
	f.lastLimit, f.lastOffset = limit, offset
	if err := f.itemsErr[queueID]; err != nil {
		return nil, err
	}
	items := f.items[queueID]
	if offset >= len(items) {
		return []domain.Job{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (f *fakeEngine) AddJob(ctx context.Context, queueID string, data json.RawMessage, priority int) (*domain.Job, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	job := domain.Job{
		ID:        "job-1",
		QueueID:   queueID,
		Data:      data,
		Status:    domain.StatusPending,
		Priority:  priority,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	f.addedJobs = append(f.addedJobs, job)
	return &job, nil
}

func (f *fakeEngine) CancelJob(ctx context.Context, queueID, jobID string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.cancelled = append(f.cancelled, queueID+"/"+jobID)
	return nil
}

func (f *fakeEngine) Workers(ctx context.Context) ([]engine.WorkerInfo, error) {
	return f.workers, nil
}

func (f *fakeEngine) SystemStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"engine": "asynq"}, nil
}

func (f *fakeEngine) Health(ctx context.Context) (map[string]interface{}, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return f.health, nil
}

func (f *fakeEngine) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEngine) Close() error { return nil }

// newRouter wires the handlers the way main does, over the given engine
// (nil means degraded mode).
func newRouter(eng engine.Engine) *gin.Engine {
	log := logger.Nop()
	agg := stats.NewAggregator(eng, nil, log)

	queueHandler := NewQueueHandler(eng, log)
	jobHandler := NewJobHandler(agg, log)
	systemHandler := NewSystemHandler(eng, agg, log)

	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/health", systemHandler.Health)
		api.GET("/system/stats", systemHandler.SystemStats)
		api.GET("/system/workers", systemHandler.ListWorkers)

		api.GET("/queues", queueHandler.ListQueues)
		api.POST("/queues", queueHandler.CreateQueue)
		api.DELETE("/queues/:queueId", queueHandler.DeleteQueue)
		api.POST("/queues/:queueId/pause", queueHandler.PauseQueue)
		api.POST("/queues/:queueId/resume", queueHandler.ResumeQueue)
		api.GET("/queues/:queueId/jobs", queueHandler.ListQueueJobs)
		api.POST("/queues/:queueId/jobs", queueHandler.AddJob)
		api.POST("/queues/:queueId/jobs/:jobId/cancel", queueHandler.CancelJob)

		api.GET("/jobs", jobHandler.ListAllJobs)
		api.GET("/activity/recent", jobHandler.RecentActivity)
	}
	return router
}
