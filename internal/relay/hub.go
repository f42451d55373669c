// Package relay republishes engine events to connected real-time clients.
// Server-to-client frames are {"event": name, "data": ...}; client-to-server
// frames are {"type": name, "queueId": ...}. Per-queue subscription groups
// are tracked per session but broadcast is currently global: every connected
// client receives every event regardless of group membership.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/pkg/logger"
)

const (
	// statsInterval is how often a fresh stats snapshot is pushed to
	// connected clients, in addition to on-demand getStats replies.
	statsInterval = 30 * time.Second

	statsTimeout = 10 * time.Second
)

// StatsProvider supplies snapshots for getStats replies and periodic pushes.
type StatsProvider interface {
	ComputeSystemStats(ctx context.Context) (domain.StatsSnapshot, error)
}

// Hub owns the set of connected sessions. The set is written concurrently as
// connections open and close, so every access goes through the mutex.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	stats StatsProvider
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// SetStats wires the stats provider after construction. The aggregator needs
// the hub's client count, so the two are built in sequence.
func (h *Hub) SetStats(p StatsProvider) {
	h.stats = p
}

// ClientCount returns the number of currently connected real-time clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()

	h.log.Info(context.Background(), "realtime client connected", map[string]interface{}{
		"session_id":    s.id,
		"total_clients": total,
	})

	s.enqueue(domain.Event{
		Name: domain.EventConnected,
		Data: map[string]interface{}{
			"sessionId": s.id,
			"message":   "connected to queue dashboard",
		},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	total := len(h.sessions)
	if _, ok := h.sessions[s.id]; ok {
		delete(h.sessions, s.id)
		s.closeSend()
		total = len(h.sessions)
	}
	h.mu.Unlock()

	h.log.Info(context.Background(), "realtime client disconnected", map[string]interface{}{
		"session_id":    s.id,
		"total_clients": total,
	})
}

// Broadcast fans an event out to every connected session. A session whose
// send buffer is full is disconnected rather than allowed to stall the
// relay or grow memory without bound.
func (h *Hub) Broadcast(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.sessions {
		select {
		case s.send <- ev:
		default:
			delete(h.sessions, id)
			s.closeSend()
			h.log.Warn(context.Background(), "dropping slow realtime client", map[string]interface{}{
				"session_id": id,
				"event":      ev.Name,
			})
		}
	}
}

// Run relays engine events until ctx is canceled, pushing a periodic stats
// snapshot while at least one client is connected. events may be nil when
// the engine is absent; the hub then only serves the per-connection protocol.
func (h *Hub) Run(ctx context.Context, events <-chan domain.Event) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.Broadcast(ev)

		case <-ticker.C:
			h.pushStats(ctx)
		}
	}
}

func (h *Hub) pushStats(ctx context.Context) {
	if h.stats == nil || h.ClientCount() == 0 {
		return
	}

	statsCtx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	snapshot, err := h.stats.ComputeSystemStats(statsCtx)
	if err != nil {
		h.log.Error(ctx, "failed to compute stats for periodic push", err, nil)
		return
	}

	h.Broadcast(domain.Event{
		Name:      domain.EventStatsUpdate,
		Data:      snapshot,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	count := len(h.sessions)
	for id, s := range h.sessions {
		delete(h.sessions, id)
		s.closeSend()
	}
	h.mu.Unlock()

	h.log.Info(context.Background(), "closed all realtime clients", map[string]interface{}{
		"clients_closed": count,
	})
}
