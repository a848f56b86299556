/*
Package registry provides the group membership registry based on the Actor Model.

Key Architectural Concepts:
  - Topic Cells: every topic with at least one subscriber is represented by an isolated
    'Cell' (Actor) holding the sessions subscribed to it.
  - Decoupling & Backpressure: per-topic mailboxes ensure that slow network consumers
    do not block the publisher or the AMQP consumers.
  - Computational Efficiency: events are serialized at most once per topic, the first
    write pump caches the frame on the event for the others.
  - Concurrency Management: membership changes go through the Hub only; each cell guards
    its own session map with a fine-grained lock.
*/
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// Celler defines the internal API for topic delivery units.
type Celler interface {
	Push(ev event.Eventer) (queued int, accepted bool)
	Attach(conn Connector) bool
	Detach(connID uuid.UUID) bool
	Members() []Connector
	Len() int
	Backlog() int
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell implements [ISOLATED_DELIVERY] logic for a single topic.
type Cell struct {
	topic model.Topic

	// [MAILBOX]
	// Buffered channel that decouples the publisher from individual delivery.
	mailbox chan event.Eventer

	// [SESSIONS]
	// Sessions subscribed to the topic; one user may hold several (devices, tabs).
	sessions map[uuid.UUID]Connector

	mu sync.RWMutex

	doneCh   chan struct{}
	stopOnce sync.Once

	// lastActivityAt records the last membership change or push.
	lastActivityAt time.Time
}

func NewCell(topic model.Topic, bufferSize int) *Cell {
	c := &Cell{
		topic:          topic,
		mailbox:        make(chan event.Eventer, bufferSize),
		sessions:       make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle returns true if the topic has no sessions and the quiet period has exceeded the threshold.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions) == 0 && time.Since(c.lastActivityAt) > timeout
}

// Push enqueues ev without blocking and returns the number of sessions it was
// queued for. accepted is false when the mailbox was full; queued then holds
// the number of sessions that lost the event.
func (c *Cell) Push(ev event.Eventer) (queued int, accepted bool) {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	n := len(c.sessions)
	c.mu.Unlock()

	if n == 0 {
		return 0, true
	}

	select {
	case <-c.doneCh:
		return 0, true
	case c.mailbox <- ev:
		return n, true
	default:
		return n, false
	}
}

// Attach adds conn. It reports false when conn was already a member.
func (c *Cell) Attach(conn Connector) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivityAt = time.Now()
	if _, ok := c.sessions[conn.GetID()]; ok {
		return false
	}
	c.sessions[conn.GetID()] = conn
	return true
}

// Detach removes the session. It reports false when it was not a member.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivityAt = time.Now()
	if _, ok := c.sessions[connID]; !ok {
		return false
	}
	delete(c.sessions, connID)
	return true
}

func (c *Cell) Members() []Connector {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Connector, 0, len(c.sessions))
	for _, conn := range c.sessions {
		out = append(out, conn)
	}
	return out
}

func (c *Cell) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Cell) Backlog() int { return len(c.mailbox) }

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)
		}
	}
}

// deliver never waits on a session: a full queue goes straight to priority
// eviction, so one stalled socket cannot hold up the rest of the topic.
func (c *Cell) deliver(ev event.Eventer) {
	// Snapshot so a stalled session never holds the lock against Attach/Detach.
	for _, conn := range c.Members() {
		conn.Send(ev, 0)
	}
}

func (c *Cell) Stop() {
	c.stopOnce.Do(func() { close(c.doneCh) })
}
