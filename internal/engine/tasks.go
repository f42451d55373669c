package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeDashboardJob is the asynq task type under which dashboard-submitted
// jobs are enqueued. Workers register a handler for this type.
const TypeDashboardJob = "dashboard:job"

// payloadEnvelope wraps the user payload with the fields asynq does not
// track for us: submission priority and creation time.
type payloadEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Priority   int             `json:"priority"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func newJobTask(data json.RawMessage, priority int, now time.Time) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payloadEnvelope{
		Data:       data,
		Priority:   priority,
		EnqueuedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return asynq.NewTask(TypeDashboardJob, payloadBytes), nil
}

// decodeEnvelope tolerates tasks enqueued by other producers: anything that
// does not carry the envelope is treated as a bare payload with no priority
// and no creation time.
func decodeEnvelope(payload []byte) payloadEnvelope {
	var env payloadEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Data != nil {
		return env
	}
	return payloadEnvelope{Data: payload}
}
