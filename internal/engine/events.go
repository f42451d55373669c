package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orchids/queue-dashboard/internal/domain"
)

// eventsChannel is the Redis pub/sub channel the engine side publishes
// domain events on. Worker processes publish jobProcessed/jobFailed there;
// the client publishes the events for its own mutations after they succeed.
const eventsChannel = "dashboard:events"

const subscribeBuffer = 64

// publish is best-effort: a failed publish never fails the mutation that
// produced the event, it is only logged.
func (c *Client) publish(ctx context.Context, name string, data interface{}) {
	payload, err := json.Marshal(domain.Event{
		Name:      name,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		c.log.Error(ctx, "failed to marshal engine event", err, map[string]interface{}{"event": name})
		return
	}

	if err := c.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		c.log.Error(ctx, "failed to publish engine event", err, map[string]interface{}{"event": name})
	}
}

// Subscribe opens the engine event stream. The returned channel is closed
// when ctx is canceled or the underlying subscription drops. Events that
// cannot be decoded are logged and skipped.
func (c *Client) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	sub := c.rdb.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to engine events: %w", err)
	}

	out := make(chan domain.Event, subscribeBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.log.Warn(ctx, "dropping malformed engine event", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
