package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

type chatFixture struct {
	store      *store.BadgerStore
	bus        *recordingBus
	chat       *ChatService
	alice, bob *model.User
	room       *model.ChatRoom
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	s := newTestStore(t)
	bus := &recordingBus{}
	resolver, err := NewIdentityResolver(s, 16, time.Minute)
	require.NoError(t, err)

	f := &chatFixture{
		store: s,
		bus:   bus,
		chat:  NewChatService(s, resolver, NewBlockService(s), bus, validator.New(), slog.Default()),
		alice: seedUser(t, s, "alice"),
		bob:   seedUser(t, s, "bob"),
	}
	f.room, err = f.chat.CreateRoom(context.Background(), f.alice.ID, "", []uuid.UUID{f.bob.ID}, true)
	require.NoError(t, err)
	return f
}

func (f *chatFixture) frame(body string) *InboundFrame {
	return &InboundFrame{Sender: "alice", RoomID: f.room.ID.String(), Receiver: "bob", Message: body}
}

func (f *chatFixture) history(t *testing.T) []*model.ChatMessage {
	t.Helper()
	msgs, err := f.chat.History(context.Background(), f.alice.ID, f.room.ID, 0)
	require.NoError(t, err)
	return msgs
}

func TestChatSendPersistsBeforeBothPublishes(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	f.bus.onPub = func(ev event.Eventer) {
		// Every publish must observe the persisted message.
		require.Len(t, f.history(t), 1)
	}

	msg, err := f.chat.Send(ctx, "alice", f.frame("hello"))
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, msg.SenderID)
	require.Equal(t, f.bob.ID, msg.ReceiverID)

	events := f.bus.Events()
	require.Len(t, events, 2)

	echo := events[0].GetPayload().(*model.ChatDelivery)
	require.Equal(t, model.ChatTopic("alice"), events[0].GetTopic())
	require.True(t, echo.IsSent)

	inbox := events[1].GetPayload().(*model.ChatDelivery)
	require.Equal(t, model.ChatTopic("bob"), events[1].GetTopic())
	require.False(t, inbox.IsSent)

	require.Equal(t, echo.MessageID, inbox.MessageID)
	require.Equal(t, "hello", inbox.Body)
	require.Equal(t, "alice", inbox.Sender)
	require.Equal(t, "bob", inbox.Receiver)
}

func TestChatSendBlockedInEitherDirection(t *testing.T) {
	for _, tc := range []struct {
		name         string
		blockerIsBob bool
	}{
		{name: "receiver blocks sender", blockerIsBob: true},
		{name: "sender blocks receiver", blockerIsBob: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newChatFixture(t)
			if tc.blockerIsBob {
				seedBlock(t, f.store, f.bob.ID, f.alice.ID)
			} else {
				seedBlock(t, f.store, f.alice.ID, f.bob.ID)
			}

			_, err := f.chat.Send(context.Background(), "alice", f.frame("hello"))
			require.ErrorIs(t, err, model.ErrBlocked)
			require.ErrorContains(t, err, ErrBlockedMessage)

			require.Empty(t, f.history(t))
			require.Empty(t, f.bus.Events())
		})
	}
}

func TestChatSendRejectsBadFrames(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	empty := f.frame("")
	_, err := f.chat.Send(ctx, "alice", empty)
	require.ErrorIs(t, err, model.ErrValidation)

	badRoom := f.frame("hi")
	badRoom.RoomID = "not-a-uuid"
	_, err = f.chat.Send(ctx, "alice", badRoom)
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = f.chat.Send(ctx, "mallory", f.frame("spoofed"))
	require.ErrorIs(t, err, model.ErrValidation)

	ghost := f.frame("hi")
	ghost.Receiver = "ghost"
	_, err = f.chat.Send(ctx, "alice", ghost)
	require.ErrorIs(t, err, model.ErrNotFound)

	carol := seedUser(t, f.store, "carol")
	outsider := f.frame("hi")
	outsider.Receiver = carol.Username
	_, err = f.chat.Send(ctx, "alice", outsider)
	require.ErrorIs(t, err, model.ErrNotFound)

	require.Empty(t, f.history(t))
	require.Empty(t, f.bus.Events())
}

func TestCreateDirectRoomIsUnique(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	again, err := f.chat.CreateRoom(ctx, f.bob.ID, "", []uuid.UUID{f.alice.ID}, true)
	require.NoError(t, err)
	require.Equal(t, f.room.ID, again.ID)

	_, err = f.chat.CreateRoom(ctx, f.alice.ID, "", nil, true)
	require.ErrorIs(t, err, model.ErrValidation)

	carol := seedUser(t, f.store, "carol")
	_, err = f.chat.GetRoom(ctx, carol.ID, f.room.ID)
	require.ErrorIs(t, err, model.ErrForbidden)
}
