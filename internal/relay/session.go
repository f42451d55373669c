package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/orchids/queue-dashboard/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBuffer = 64
)

// clientMessage is one inbound frame from a real-time client.
type clientMessage struct {
	Type    string `json:"type"`
	QueueID string `json:"queueId,omitempty"`
}

// Session is one connected real-time client: a websocket connection, a
// bounded outbound buffer, and the set of queue ids it has subscribed to.
// A session lives exactly as long as its connection.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan domain.Event

	mu     sync.Mutex
	subs   map[string]struct{}
	closed bool
}

func newSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan domain.Event, sendBuffer),
		subs: make(map[string]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) subscribe(queueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[queueID] = struct{}{}
}

func (s *Session) unsubscribe(queueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, queueID)
}

func (s *Session) subscribedTo(queueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[queueID]
	return ok
}

// enqueue offers an event to the session without blocking; a full buffer
// drops the event (the periodic stats push will catch the client up).
// After closeSend it is a no-op: the read pump may still deliver inbound
// messages for a session the hub has already dropped.
func (s *Session) enqueue(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- ev:
	default:
	}
}

// closeSend closes the outbound channel exactly once and stops further
// enqueues. Callers must not hold s.mu.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.Warn(context.Background(), "unexpected websocket close", map[string]interface{}{
					"session_id": s.id,
					"error":      err.Error(),
				})
			}
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Session) handleMessage(msg clientMessage) {
	switch msg.Type {
	case domain.MsgGetStats:
		s.replyStats()
	case domain.MsgSubscribeQueue:
		if msg.QueueID != "" {
			s.subscribe(msg.QueueID)
		}
	case domain.MsgUnsubscribeQueue:
		if msg.QueueID != "" {
			s.unsubscribe(msg.QueueID)
		}
	default:
		s.enqueue(domain.Event{
			Name:      domain.EventError,
			Data:      map[string]interface{}{"message": "unknown message type: " + msg.Type},
			Timestamp: time.Now().UTC(),
		})
	}
}

func (s *Session) replyStats() {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	if s.hub.stats == nil {
		s.enqueue(domain.Event{
			Name:      domain.EventError,
			Data:      map[string]interface{}{"message": "stats are not available"},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	snapshot, err := s.hub.stats.ComputeSystemStats(ctx)
	if err != nil {
		s.enqueue(domain.Event{
			Name:      domain.EventError,
			Data:      map[string]interface{}{"message": err.Error()},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	s.enqueue(domain.Event{
		Name:      domain.EventStatsUpdate,
		Data:      snapshot,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the session.
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
