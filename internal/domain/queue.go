package domain

import "time"

type Queue struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MaxSize     int       `json:"maxSize"`
	Paused      bool      `json:"paused"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// QueueSpec carries the user-supplied fields of a queue creation request.
type QueueSpec struct {
	ID          string `json:"queueId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxSize     int    `json:"maxSize"`
}

const DefaultMaxSize = 10000
