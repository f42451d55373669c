// Package engine wraps the external queue engine (an asynq deployment backed
// by Redis) behind the handful of calls the dashboard needs. All queue
// semantics live on the engine side; this package only relays calls and
// projects engine state into dashboard types.
package engine

import (
	"context"
	"encoding/json"

	"github.com/orchids/queue-dashboard/internal/domain"
)

type Engine interface {
	CreateQueue(ctx context.Context, spec domain.QueueSpec) (*domain.Queue, error)
	DeleteQueue(ctx context.Context, queueID string) error
	PauseQueue(ctx context.Context, queueID, reason string) error
	ResumeQueue(ctx context.Context, queueID string) error
	GetAllQueues(ctx context.Context) ([]domain.Queue, error)
	GetQueueItems(ctx context.Context, queueID string, limit, offset int) ([]domain.Job, error)
	AddJob(ctx context.Context, queueID string, data json.RawMessage, priority int) (*domain.Job, error)
	CancelJob(ctx context.Context, queueID, jobID string) error
	Workers(ctx context.Context) ([]WorkerInfo, error)
	SystemStats(ctx context.Context) (map[string]interface{}, error)
	Health(ctx context.Context) (map[string]interface{}, error)
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
	Close() error
}

// WorkerInfo describes one engine worker server process.
type WorkerInfo struct {
	ID          string         `json:"id"`
	Host        string         `json:"host"`
	PID         int            `json:"pid"`
	Concurrency int            `json:"concurrency"`
	Queues      map[string]int `json:"queues"`
	Started     string         `json:"started"`
	ActiveTasks int            `json:"activeTasks"`
}
