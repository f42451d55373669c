package domain

import "errors"

var (
	ErrEngineUnavailable = errors.New("queue engine is not available")
	ErrQueueNotFound     = errors.New("queue not found")
	ErrQueueExists       = errors.New("queue already exists")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidQueueID    = errors.New("queueId is required")
	ErrInvalidName       = errors.New("name is required")
)
