package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(WithEvictionInterval(0))
	t.Cleanup(h.Shutdown)
	return h
}

func newConn(t *testing.T, userID uuid.UUID) Connector {
	t.Helper()
	c := NewConnector(context.Background(), userID, "user-"+userID.String()[:8], 8, ConnectMetadata{Channel: "test"})
	t.Cleanup(c.Close)
	return c
}

func recv(t *testing.T, c Connector) event.Eventer {
	t.Helper()
	select {
	case ev := <-c.Recv():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(t)
	conn := newConn(t, uuid.New())
	h.Register(conn)

	topic := model.UserTopic(conn.GetUserID())
	require.True(t, h.Subscribe(topic, conn))
	require.False(t, h.Subscribe(topic, conn))

	require.Len(t, h.Members(topic), 1)
	require.Equal(t, []model.Topic{topic}, h.Topics(conn))
}

func TestUnsubscribeAbsentIsNoop(t *testing.T) {
	h := newTestHub(t)
	conn := newConn(t, uuid.New())

	require.False(t, h.Unsubscribe(model.PresenceTopic, conn))

	h.Register(conn)
	require.True(t, h.Subscribe(model.PresenceTopic, conn))
	require.True(t, h.Unsubscribe(model.PresenceTopic, conn))
	require.False(t, h.Unsubscribe(model.PresenceTopic, conn))
	require.Empty(t, h.Members(model.PresenceTopic))
	require.False(t, h.IsSubscribed(model.PresenceTopic))
}

func TestBroadcastReachesEveryDevice(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	phone, laptop := newConn(t, userID), newConn(t, userID)
	other := newConn(t, uuid.New())

	for _, c := range []Connector{phone, laptop, other} {
		h.Register(c)
	}
	topic := model.UserTopic(userID)
	h.Subscribe(topic, phone)
	h.Subscribe(topic, laptop)
	h.Subscribe(model.UserTopic(other.GetUserID()), other)

	n := &model.Notification{ID: uuid.New(), RecipientID: userID, CreatedAt: time.Now()}
	require.Equal(t, 2, h.Broadcast(event.NewNotificationEvent(n)))

	require.Equal(t, n, recv(t, phone).GetPayload())
	require.Equal(t, n, recv(t, laptop).GetPayload())
	select {
	case <-other.Recv():
		t.Fatal("event leaked to another user's topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastWithoutMembers(t *testing.T) {
	h := newTestHub(t)
	ev := event.NewChatEvent(model.ChatTopic("nobody"), &model.ChatDelivery{})
	require.Zero(t, h.Broadcast(ev))
}

func TestDetachRemovesEverySubscription(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	first, second := newConn(t, userID), newConn(t, userID)
	h.Register(first)
	h.Register(second)

	for _, topic := range []model.Topic{model.ChatTopic("alice"), model.ActiveUsersTopic} {
		h.Subscribe(topic, first)
	}
	h.Subscribe(model.ActiveUsersTopic, second)
	require.Equal(t, 2, h.SessionCount(userID))

	remaining, detached := h.Detach(first)
	require.True(t, detached)
	require.Equal(t, 1, remaining)
	require.Equal(t, StateClosed, first.State())
	require.Empty(t, h.Members(model.ChatTopic("alice")))
	require.Len(t, h.Members(model.ActiveUsersTopic), 1)
	require.Empty(t, h.Topics(first))

	remaining, detached = h.Detach(second)
	require.True(t, detached)
	require.Zero(t, remaining)

	_, detached = h.Detach(second)
	require.False(t, detached)
	require.Equal(t, 0, h.SessionCount(userID))
	require.Equal(t, 0, h.Stats().TotalConnections)
}

func TestSubscribeClosedConnIsRejected(t *testing.T) {
	h := newTestHub(t)
	conn := newConn(t, uuid.New())
	conn.Close()
	require.False(t, h.Subscribe(model.PresenceTopic, conn))
}

func TestShutdownClosesSessions(t *testing.T) {
	h := NewHub(WithEvictionInterval(0))
	conn := newConn(t, uuid.New())
	h.Register(conn)
	h.Subscribe(model.PresenceTopic, conn)

	h.Shutdown()
	h.Shutdown()

	require.Equal(t, StateClosed, conn.State())
	require.False(t, h.Subscribe(model.PresenceTopic, conn))
	require.Zero(t, h.Stats().TotalTopics)
}

func TestEvictIdleKeepsLiveTopics(t *testing.T) {
	h := NewHub(WithEvictionInterval(0), WithIdleTimeout(0))
	t.Cleanup(h.Shutdown)

	live, gone := newConn(t, uuid.New()), newConn(t, uuid.New())
	h.Register(live)
	h.Register(gone)
	h.Subscribe(model.PresenceTopic, live)
	h.Subscribe(model.ChatTopic("gone"), gone)
	h.Unsubscribe(model.ChatTopic("gone"), gone)

	time.Sleep(time.Millisecond)
	require.Equal(t, 1, h.evictIdle())
	require.Equal(t, 1, h.Stats().TotalTopics)
	require.True(t, h.IsSubscribed(model.PresenceTopic))
}

func TestStatsReportsTopics(t *testing.T) {
	h := newTestHub(t)
	conn := newConn(t, uuid.New())
	h.Register(conn)
	h.Subscribe(model.PresenceTopic, conn)
	h.Subscribe(model.UserTopic(conn.GetUserID()), conn)

	stats := h.Stats()
	require.Equal(t, 2, stats.TotalTopics)
	require.Equal(t, 1, stats.TotalUsers)
	require.Equal(t, 1, stats.TotalConnections)
	require.Len(t, stats.Topics, 2)
}

func presenceEvent(userID uuid.UUID) event.Eventer {
	return event.NewSystemEvent(model.PresenceTopic, event.PresenceChanged, event.PriorityNormal,
		&model.Presence{UserID: userID, Status: model.Online, UpdatedAt: time.Now().UnixNano()})
}

func TestStalledSessionDoesNotStarveSharedTopic(t *testing.T) {
	h := NewHub(WithEvictionInterval(0), WithMailboxSize(64))
	t.Cleanup(h.Shutdown)

	// Never drained: its one-slot queue is full after the first event.
	stalled := NewConnector(context.Background(), uuid.New(), "stalled", 1, ConnectMetadata{})
	healthy := NewConnector(context.Background(), uuid.New(), "healthy", 32, ConnectMetadata{})
	t.Cleanup(stalled.Close)
	t.Cleanup(healthy.Close)

	for _, c := range []Connector{stalled, healthy} {
		h.Register(c)
		h.Subscribe(model.PresenceTopic, c)
	}

	const events = 20
	for range events {
		require.Equal(t, 2, h.Broadcast(presenceEvent(uuid.New())))
	}

	for i := range events {
		select {
		case <-healthy.Recv():
		case <-time.After(time.Second):
			t.Fatalf("healthy session received %d of %d events", i, events)
		}
	}

	require.Eventually(t, func() bool { return stalled.Dropped() == events-1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, healthy.Dropped())
	require.EqualValues(t, events-1, h.Stats().DroppedEvents)
}

func TestMailboxOverflowIsCounted(t *testing.T) {
	h := newTestHub(t)
	conn := newConn(t, uuid.New())

	// A cell whose loop is not running keeps every pushed event in its mailbox.
	cell := &Cell{
		topic:          model.PresenceTopic,
		mailbox:        make(chan event.Eventer, 1),
		sessions:       map[uuid.UUID]Connector{conn.GetID(): conn},
		doneCh:         make(chan struct{}),
		lastActivityAt: time.Now(),
	}
	h.mu.Lock()
	h.cells[model.PresenceTopic] = cell
	h.mu.Unlock()

	require.Equal(t, 1, h.Broadcast(presenceEvent(conn.GetUserID())))
	require.Zero(t, h.Broadcast(presenceEvent(conn.GetUserID())))
	require.Zero(t, h.Broadcast(presenceEvent(conn.GetUserID())))

	require.EqualValues(t, 2, h.Stats().DroppedEvents)
	require.Equal(t, 1, cell.Backlog())
}
