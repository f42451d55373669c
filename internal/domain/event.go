package domain

import "time"

// Event names relayed from the engine to real-time clients. Broadcast
// preserves the name and payload unmodified.
const (
	EventQueueCreated = "queueCreated"
	EventQueueDeleted = "queueDeleted"
	EventQueuePaused  = "queuePaused"
	EventQueueResumed = "queueResumed"
	EventJobAdded     = "jobAdded"
	EventJobProcessed = "jobProcessed"
	EventJobFailed    = "jobFailed"
	EventJobCancelled = "jobCancelled"
)

// Server-originated real-time message types.
const (
	EventConnected   = "connected"
	EventStatsUpdate = "statsUpdate"
	EventError       = "error"
)

// Client-to-server real-time message types.
const (
	MsgGetStats         = "getStats"
	MsgSubscribeQueue   = "subscribeQueue"
	MsgUnsubscribeQueue = "unsubscribeQueue"
)

type Event struct {
	Name      string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}
