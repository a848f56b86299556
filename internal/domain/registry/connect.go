package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// State is the lifecycle stage of a session. Transitions only move forward.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/HUB)
// This allows mocking and decoupling from the concrete implementation
type Connector interface {
	GetID() uuid.UUID
	GetUserID() uuid.UUID
	GetUsername() string
	GetCreatedAt() time.Time
	GetMetadata() ConnectMetadata
	State() State
	// Open marks the handshake as accepted. No-op once closed.
	Open()
	Send(ev event.Eventer, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	// Done is closed when the session is terminated.
	Done() <-chan struct{}
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [METADATA] EXPORTED FOR TRANSPORT AND ANALYTICS LAYERS
type ConnectMetadata struct {
	Channel   string // "notifications", "chat" or "poll"
	RemoteIP  string
	UserAgent string
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	userID    uuid.UUID
	username  string
	metadata  ConnectMetadata
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// sendCh is never closed: readers observe termination through ctx.
	// Closing it would race with cells that still hold a reference.
	sendCh       chan event.Eventer
	closeOnce    sync.Once
	state        atomic.Int32
	droppedCount atomic.Uint64
}

// NewConnector builds a session in the Connecting state. Cancelling ctx closes it.
func NewConnector(ctx context.Context, userID uuid.UUID, username string, bufferSize int, md ConnectMetadata) Connector {
	childCtx, cancel := context.WithCancel(ctx)

	c := &connect{
		id:        uuid.New(),
		userID:    userID,
		username:  username,
		metadata:  md,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
	c.state.Store(int32(StateConnecting))

	// [PARENT_CANCEL] A cancelled request context must move the session to Closed too.
	go func() {
		<-childCtx.Done()
		c.Close()
	}()

	return c
}

func (c *connect) GetID() uuid.UUID             { return c.id }
func (c *connect) GetUserID() uuid.UUID         { return c.userID }
func (c *connect) GetUsername() string          { return c.username }
func (c *connect) GetCreatedAt() time.Time      { return c.createdAt }
func (c *connect) GetMetadata() ConnectMetadata { return c.metadata }
func (c *connect) State() State                 { return State(c.state.Load()) }
func (c *connect) Dropped() uint64              { return c.droppedCount.Load() }
func (c *connect) Done() <-chan struct{}        { return c.ctx.Done() }

func (c *connect) Open() {
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Send attempts to push an event into the channel.
// If the channel is full, it tries to evict lower priority events to make room.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	// [LIFECYCLE_GATE] A closed session reports failure instead of silently queuing.
	if c.State() == StateClosed {
		return false
	}

	select {
	case c.sendCh <- ev:
		return true
	default:
	}
	if timeout <= 0 {
		return c.handleBackpressure(ev)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		return false

	// [PRIMARY_DELIVERY] Waits up to 'timeout' for space, smoothing out transient jitter.
	case c.sendCh <- ev:
		return true

	// [BACKPRESSURE_THRESHOLD] The buffer stayed saturated for the entire window.
	case <-timer.C:
		return c.handleBackpressure(ev)
	}
}

// handleBackpressure manages full buffers by dropping low-priority events.
func (c *connect) handleBackpressure(ev event.Eventer) bool {
	// Low priority events are shed first to keep room for business traffic.
	if ev.GetPriority() <= event.PriorityLow {
		c.droppedCount.Add(1)
		return false
	}

	// Evict the oldest queued event if it ranks lower than the incoming one.
	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			c.droppedCount.Add(1) // oldEv is shed either way
			select {
			case c.sendCh <- ev:
				return true
			default:
			}
		} else {
			// Put it back (best effort).
			select {
			case c.sendCh <- oldEv:
			default:
				c.droppedCount.Add(1)
			}
		}
	default:
	}

	c.droppedCount.Add(1)
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Close terminates the session. Safe to call concurrently from the hub,
// the transport handler and the parent context watcher.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.cancelFn()
	})
}
