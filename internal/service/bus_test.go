package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/domain/registry"
	"github.com/webitel/im-social-service/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newBusFixture(t *testing.T) (*Bus, *mocks.MockEventDispatcher, registry.Connector) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockEventDispatcher(ctrl)

	hub := registry.NewHub(registry.WithEvictionInterval(0))
	t.Cleanup(hub.Shutdown)

	user := uuid.New()
	conn := registry.NewConnector(context.Background(), user, "alice", 8, registry.ConnectMetadata{})
	t.Cleanup(conn.Close)
	hub.Register(conn)
	hub.Subscribe(model.UserTopic(user), conn)
	conn.Open()

	return NewBus(hub, dispatcher, slog.Default()), dispatcher, conn
}

func expectDelivered(t *testing.T, conn registry.Connector, id string) {
	t.Helper()
	select {
	case ev := <-conn.Recv():
		require.Equal(t, id, ev.GetID())
	case <-time.After(time.Second):
		t.Fatal("event not delivered locally")
	}
}

func TestBusExportsThroughDispatcher(t *testing.T) {
	bus, dispatcher, conn := newBusFixture(t)
	ev := event.NewNotificationEvent(&model.Notification{ID: uuid.New(), RecipientID: conn.GetUserID()})

	dispatcher.EXPECT().Publish(gomock.Any(), ev).Return(nil)
	bus.Publish(context.Background(), ev)

	// The broker consumer delivers it, not the publishing path.
	select {
	case <-conn.Recv():
		t.Fatal("exported event delivered twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusFallsBackToLocalHub(t *testing.T) {
	bus, dispatcher, conn := newBusFixture(t)
	ev := event.NewNotificationEvent(&model.Notification{ID: uuid.New(), RecipientID: conn.GetUserID()})

	dispatcher.EXPECT().Publish(gomock.Any(), ev).Return(errors.New("broker down"))
	bus.Publish(context.Background(), ev)

	expectDelivered(t, conn, ev.GetID())
}

func TestBusKeepsLocalEventsLocal(t *testing.T) {
	bus, _, conn := newBusFixture(t)
	ev := event.NewSystemEvent(model.UserTopic(conn.GetUserID()), event.ChatError, event.PriorityHigh,
		&model.ErrorPayload{Message: "nope"})

	// No dispatcher expectation: a call would fail the test.
	bus.Publish(context.Background(), ev)
	expectDelivered(t, conn, ev.GetID())
}
