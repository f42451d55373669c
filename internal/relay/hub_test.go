package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

type fakeStats struct {
	snapshot domain.StatsSnapshot
	err      error
}

func (f *fakeStats) ComputeSystemStats(ctx context.Context) (domain.StatsSnapshot, error) {
	return f.snapshot, f.err
}

func drain(t *testing.T, s *Session) domain.Event {
	t.Helper()
	select {
	case ev := <-s.send:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return domain.Event{}
	}
}

func TestConnectDisconnectCount(t *testing.T) {
	hub := NewHub(logger.Nop())
	assert.Equal(t, 0, hub.ClientCount())

	s := newSession(hub, nil)
	hub.register(s)
	assert.Equal(t, 1, hub.ClientCount())

	// Subscribing and unsubscribing never changes the connection count.
	s.subscribe("Q1")
	assert.Equal(t, 1, hub.ClientCount())
	s.unsubscribe("Q1")
	assert.Equal(t, 1, hub.ClientCount())

	hub.unregister(s)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestRegisterSendsConnectedGreeting(t *testing.T) {
	hub := NewHub(logger.Nop())
	s := newSession(hub, nil)
	hub.register(s)

	ev := drain(t, s)
	assert.Equal(t, domain.EventConnected, ev.Name)

	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, s.ID(), data["sessionId"])
	assert.NotEmpty(t, data["message"])
}

func TestBroadcastReachesAllSessions(t *testing.T) {
	hub := NewHub(logger.Nop())
	s1 := newSession(hub, nil)
	s2 := newSession(hub, nil)
	hub.register(s1)
	hub.register(s2)
	drain(t, s1) // greetings
	drain(t, s2)

	// Group membership does not filter the broadcast.
	s1.subscribe("Q1")

	hub.Broadcast(domain.Event{Name: domain.EventJobAdded, Data: map[string]interface{}{"queueId": "Q2"}})

	assert.Equal(t, domain.EventJobAdded, drain(t, s1).Name)
	assert.Equal(t, domain.EventJobAdded, drain(t, s2).Name)
}

func TestBroadcastDropsSlowSession(t *testing.T) {
	hub := NewHub(logger.Nop())
	s := newSession(hub, nil)
	hub.register(s)

	// Fill the outbound buffer completely; the next broadcast cannot be
	// queued and the session must be dropped.
	for i := len(s.send); i < cap(s.send); i++ {
		s.send <- domain.Event{Name: domain.EventJobAdded}
	}

	hub.Broadcast(domain.Event{Name: domain.EventQueueCreated})
	assert.Equal(t, 0, hub.ClientCount())
}

func TestInboundMessageAfterSlowDrop(t *testing.T) {
	hub := NewHub(logger.Nop())
	hub.SetStats(&fakeStats{snapshot: domain.StatsSnapshot{TotalQueues: 1}})

	s := newSession(hub, nil)
	hub.register(s)
	for i := len(s.send); i < cap(s.send); i++ {
		s.send <- domain.Event{Name: domain.EventJobAdded}
	}

	hub.Broadcast(domain.Event{Name: domain.EventQueueCreated})
	require.Equal(t, 0, hub.ClientCount())

	// The read pump outlives the drop until the connection dies, so a
	// dropped session may still deliver inbound frames. Those must be
	// discarded quietly rather than reviving the closed outbound channel.
	s.handleMessage(clientMessage{Type: domain.MsgGetStats})
	s.handleMessage(clientMessage{Type: "bogus"})
	s.enqueue(domain.Event{Name: domain.EventStatsUpdate})

	// The eventual teardown path must also tolerate the earlier drop.
	hub.unregister(s)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestSubscriptionTracking(t *testing.T) {
	hub := NewHub(logger.Nop())
	s := newSession(hub, nil)

	assert.False(t, s.subscribedTo("Q1"))
	s.handleMessage(clientMessage{Type: domain.MsgSubscribeQueue, QueueID: "Q1"})
	assert.True(t, s.subscribedTo("Q1"))
	s.handleMessage(clientMessage{Type: domain.MsgUnsubscribeQueue, QueueID: "Q1"})
	assert.False(t, s.subscribedTo("Q1"))
}

func TestGetStatsReply(t *testing.T) {
	hub := NewHub(logger.Nop())
	hub.SetStats(&fakeStats{snapshot: domain.StatsSnapshot{TotalQueues: 2, ConnectedClients: 1}})

	s := newSession(hub, nil)
	s.handleMessage(clientMessage{Type: domain.MsgGetStats})

	ev := drain(t, s)
	require.Equal(t, domain.EventStatsUpdate, ev.Name)
	snapshot, ok := ev.Data.(domain.StatsSnapshot)
	require.True(t, ok)
	assert.Equal(t, 2, snapshot.TotalQueues)
}

func TestGetStatsErrorReply(t *testing.T) {
	hub := NewHub(logger.Nop())
	hub.SetStats(&fakeStats{err: errors.New("engine down")})

	s := newSession(hub, nil)
	s.handleMessage(clientMessage{Type: domain.MsgGetStats})

	ev := drain(t, s)
	assert.Equal(t, domain.EventError, ev.Name)
}

func TestUnknownMessageType(t *testing.T) {
	hub := NewHub(logger.Nop())
	s := newSession(hub, nil)

	s.handleMessage(clientMessage{Type: "bogus"})
	ev := drain(t, s)
	assert.Equal(t, domain.EventError, ev.Name)
}

func TestRunRelaysEngineEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	s := newSession(hub, nil)
	hub.register(s)
	drain(t, s)

	events := make(chan domain.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		hub.Run(ctx, events)
		close(done)
	}()

	events <- domain.Event{Name: domain.EventQueuePaused}
	assert.Equal(t, domain.EventQueuePaused, drain(t, s).Name)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancel")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
