package registry

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// Hubber defines the gateway for session management and topic routing.
type Hubber interface {
	// Register tracks a new session for its user. Topics are joined with Subscribe.
	Register(conn Connector)
	// Detach removes conn from every topic, closes it and returns how many
	// sessions its user still holds on this node. detached is false when conn
	// was not registered (already detached).
	Detach(conn Connector) (remaining int, detached bool)
	Subscribe(topic model.Topic, conn Connector) bool
	Unsubscribe(topic model.Topic, conn Connector) bool
	Members(topic model.Topic) []Connector
	Topics(conn Connector) []model.Topic
	// Broadcast fans ev out to the local members of ev.GetTopic() and returns
	// the number of sessions it was queued for.
	Broadcast(ev event.Eventer) int
	IsSubscribed(topic model.Topic) bool
	SessionCount(userID uuid.UUID) int
	// Sessions lists the live sessions userID holds on this node.
	Sessions(userID uuid.UUID) []Connector
	Stats() model.HubStats
	Shutdown()
}

type hubConfig struct {
	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int
}

// Hub implements a [SCALABLE_REGISTRY] using the topic Cell pattern.
//
// [INVARIANT] A session is a member of topic T iff T is in its index entry.
// Both sides are mutated under mu only.
type Hub struct {
	mu    sync.RWMutex
	cells map[model.Topic]Celler
	// index: session id -> joined topics
	index map[uuid.UUID]map[model.Topic]struct{}
	// users: user id -> live sessions
	users map[uuid.UUID]map[uuid.UUID]Connector
	conns map[uuid.UUID]Connector

	config    hubConfig
	logger    *slog.Logger
	startedAt time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		cells: make(map[model.Topic]Celler),
		index: make(map[uuid.UUID]map[model.Topic]struct{}),
		users: make(map[uuid.UUID]map[uuid.UUID]Connector),
		conns: make(map[uuid.UUID]Connector),
		config: hubConfig{
			evictionInterval: 5 * time.Minute,
			idleTimeout:      10 * time.Minute,
			mailboxSize:      1024,
		},
		logger:    slog.Default(),
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.config.evictionInterval > 0 {
		go h.janitor()
	}
	return h
}

func (h *Hub) Register(conn Connector) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		conn.Close()
		return
	}

	sessions, ok := h.users[conn.GetUserID()]
	if !ok {
		sessions = make(map[uuid.UUID]Connector)
		h.users[conn.GetUserID()] = sessions
	}
	sessions[conn.GetID()] = conn
	h.conns[conn.GetID()] = conn
	if _, ok := h.index[conn.GetID()]; !ok {
		h.index[conn.GetID()] = make(map[model.Topic]struct{})
	}
}

// Subscribe is idempotent: a second call for the same pair is a no-op returning false.
func (h *Hub) Subscribe(topic model.Topic, conn Connector) bool {
	if conn.State() == StateClosed {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return false
	}

	// [LAZY_INIT] Create the cell only when the first subscriber arrives.
	cell, ok := h.cells[topic]
	if !ok {
		cell = NewCell(topic, h.config.mailboxSize)
		h.cells[topic] = cell
	}
	if !cell.Attach(conn) {
		return false
	}

	joined, ok := h.index[conn.GetID()]
	if !ok {
		joined = make(map[model.Topic]struct{})
		h.index[conn.GetID()] = joined
	}
	joined[topic] = struct{}{}
	return true
}

// Unsubscribe is idempotent: removing an absent session is a no-op returning false.
func (h *Hub) Unsubscribe(topic model.Topic, conn Connector) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.unsubscribeLocked(topic, conn.GetID())
}

func (h *Hub) unsubscribeLocked(topic model.Topic, connID uuid.UUID) bool {
	if joined, ok := h.index[connID]; ok {
		delete(joined, topic)
	}

	// Empty cells stay until the janitor reclaims them, so flapping reconnects reuse them.
	cell, ok := h.cells[topic]
	if !ok {
		return false
	}
	return cell.Detach(connID)
}

func (h *Hub) Detach(conn Connector) (int, bool) {
	h.mu.Lock()
	_, detached := h.conns[conn.GetID()]
	for topic := range h.index[conn.GetID()] {
		h.unsubscribeLocked(topic, conn.GetID())
	}
	delete(h.index, conn.GetID())
	delete(h.conns, conn.GetID())

	remaining := 0
	if sessions, ok := h.users[conn.GetUserID()]; ok {
		delete(sessions, conn.GetID())
		remaining = len(sessions)
		if remaining == 0 {
			delete(h.users, conn.GetUserID())
		}
	}
	h.mu.Unlock()

	if detached {
		h.dropped.Add(conn.Dropped())
	}
	conn.Close()

	h.logger.Debug("SESSION_DETACHED",
		slog.String("conn_id", conn.GetID().String()),
		slog.String("user_id", conn.GetUserID().String()),
		slog.Int("remaining", remaining),
	)
	return remaining, detached
}

func (h *Hub) Members(topic model.Topic) []Connector {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if cell, ok := h.cells[topic]; ok {
		return cell.Members()
	}
	return nil
}

func (h *Hub) Topics(conn Connector) []model.Topic {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.Topic, 0, len(h.index[conn.GetID()]))
	for topic := range h.index[conn.GetID()] {
		out = append(out, topic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Hub) Broadcast(ev event.Eventer) int {
	h.mu.RLock()
	cell, ok := h.cells[ev.GetTopic()]
	h.mu.RUnlock()

	if !ok {
		return 0
	}
	n, accepted := cell.Push(ev)
	if !accepted {
		h.dropped.Add(uint64(n))
		h.logger.Warn("TOPIC_MAILBOX_FULL",
			slog.String("topic", ev.GetTopic().String()),
			slog.String("event_id", ev.GetID()),
			slog.String("kind", ev.GetKind().String()),
			slog.Int("sessions", n),
		)
		return 0
	}
	return n
}

// IsSubscribed reports whether this node holds at least one member of topic.
func (h *Hub) IsSubscribed(topic model.Topic) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cell, ok := h.cells[topic]
	return ok && cell.Len() > 0
}

func (h *Hub) SessionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) Sessions(userID uuid.UUID) []Connector {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Connector, 0, len(h.users[userID]))
	for _, conn := range h.users[userID] {
		out = append(out, conn)
	}
	return out
}

func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := model.HubStats{
		TotalTopics:      len(h.cells),
		TotalUsers:       len(h.users),
		TotalConnections: len(h.conns),
		DroppedEvents:    h.dropped.Load(),
		Uptime:           time.Since(h.startedAt),
	}
	for _, conn := range h.conns {
		stats.DroppedEvents += conn.Dropped()
	}
	for topic, cell := range h.cells {
		stats.Topics = append(stats.Topics, model.TopicStats{
			Topic:       topic,
			Subscribers: cell.Len(),
			Mailbox:     cell.Backlog(),
		})
	}
	sort.Slice(stats.Topics, func(i, j int) bool { return stats.Topics[i].Topic < stats.Topics[j].Topic })
	return stats
}

// Shutdown force-closes every session and stops all cells. Idempotent.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.closed.Store(true)
		close(h.stopCh)

		h.mu.Lock()
		conns := make([]Connector, 0, len(h.conns))
		for _, conn := range h.conns {
			conns = append(conns, conn)
		}
		for topic, cell := range h.cells {
			cell.Stop()
			delete(h.cells, topic)
		}
		h.index = make(map[uuid.UUID]map[model.Topic]struct{})
		h.users = make(map[uuid.UUID]map[uuid.UUID]Connector)
		h.conns = make(map[uuid.UUID]Connector)
		h.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
		h.logger.Info("HUB_SHUTDOWN", slog.Int("closed_sessions", len(conns)))
	})
}

// janitor reclaims idle topic cells.
func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.evictIdle()
		}
	}
}

func (h *Hub) evictIdle() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	evicted := 0
	for topic, cell := range h.cells {
		if cell.IsIdle(h.config.idleTimeout) {
			cell.Stop()
			delete(h.cells, topic)
			evicted++
		}
	}
	if evicted > 0 {
		h.logger.Debug("TOPICS_EVICTED", slog.Int("count", evicted))
	}
	return evicted
}
