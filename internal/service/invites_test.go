package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/model"
)

type inviteFixture struct {
	store      *store.BadgerStore
	bus        *recordingBus
	notifier   *NotificationService
	invites    *InviteService
	alice, bob *model.User
}

func newInviteFixture(t *testing.T) *inviteFixture {
	t.Helper()
	s := newTestStore(t)
	bus := &recordingBus{}
	notifier := NewNotificationService(s, bus, slog.Default())
	return &inviteFixture{
		store:    s,
		bus:      bus,
		notifier: notifier,
		invites:  NewInviteService(s, notifier, slog.Default()),
		alice:    seedUser(t, s, "alice"),
		bob:      seedUser(t, s, "bob"),
	}
}

// invite sends alice -> bob and returns bob's game_invite notification.
func (f *inviteFixture) invite(t *testing.T) (*model.GameInvite, *model.Notification) {
	t.Helper()
	inv, n, err := f.invites.Create(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.Equal(t, model.GameInviteType, n.Type)
	require.Equal(t, f.bob.ID, n.RecipientID)
	require.Equal(t, n.ID, inv.NotificationID)
	return inv, n
}

func (f *inviteFixture) load(t *testing.T, inviteID, notificationID uuid.UUID) (*model.GameInvite, *model.Notification) {
	t.Helper()
	var (
		inv *model.GameInvite
		n   *model.Notification
	)
	require.NoError(t, f.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		if inv, err = tx.GetInvite(inviteID); err != nil {
			return err
		}
		n, err = tx.GetNotification(notificationID)
		return err
	}))
	return inv, n
}

func TestInviteAccept(t *testing.T) {
	f := newInviteFixture(t)
	inv, trigger := f.invite(t)
	f.bus.Reset()

	res, err := f.invites.Respond(context.Background(), f.bob.ID, trigger.ID, InviteAccept)
	require.NoError(t, err)
	require.NotNil(t, res.Room)
	require.Equal(t, f.alice.ID, res.Room.Player1)
	require.Equal(t, f.bob.ID, res.Room.Player2)
	require.Equal(t, model.GameActive, res.Room.Status)

	stored, n := f.load(t, inv.ID, trigger.ID)
	require.Equal(t, model.InviteAccepted, stored.Status)
	require.Equal(t, res.Room.ID, stored.GameRoomID)
	require.True(t, n.IsRead)

	published := f.bus.Notifications()
	require.Len(t, published, 1)
	require.Equal(t, model.GameReady, published[0].Type)
	require.Equal(t, f.alice.ID, published[0].RecipientID)
	require.Equal(t, "/game/"+res.Room.ID.String()+"/", published[0].RedirectURL)
	require.Equal(t, model.UserTopic(f.alice.ID), f.bus.Events()[0].GetTopic())
}

func TestInviteReject(t *testing.T) {
	f := newInviteFixture(t)
	inv, trigger := f.invite(t)
	f.bus.Reset()

	res, err := f.invites.Respond(context.Background(), f.bob.ID, trigger.ID, InviteReject)
	require.NoError(t, err)
	require.Nil(t, res.Room)

	stored, n := f.load(t, inv.ID, trigger.ID)
	require.Equal(t, model.InviteRejected, stored.Status)
	require.Equal(t, uuid.Nil, stored.GameRoomID)
	require.True(t, n.IsRead)

	published := f.bus.Notifications()
	require.Len(t, published, 1)
	require.Equal(t, model.InviteRejectedType, published[0].Type)
	require.Equal(t, "bob rejected your game invite", published[0].Content)
}

func TestInviteRespondGuards(t *testing.T) {
	f := newInviteFixture(t)
	ctx := context.Background()
	_, trigger := f.invite(t)

	_, err := f.invites.Respond(ctx, f.alice.ID, trigger.ID, InviteAccept)
	require.ErrorIs(t, err, model.ErrNotFound, "only the recipient can answer")

	_, err = f.invites.Respond(ctx, f.bob.ID, trigger.ID, "maybe")
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = f.invites.Respond(ctx, f.bob.ID, trigger.ID, InviteReject)
	require.NoError(t, err)
	_, err = f.invites.Respond(ctx, f.bob.ID, trigger.ID, InviteAccept)
	require.ErrorIs(t, err, model.ErrConflict)

	_, _, err = f.invites.Create(ctx, f.alice.ID, f.alice.ID)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestInviteDuplicatePending(t *testing.T) {
	f := newInviteFixture(t)
	f.invite(t)

	_, _, err := f.invites.Create(context.Background(), f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestInviteBlocked(t *testing.T) {
	f := newInviteFixture(t)
	seedBlock(t, f.store, f.bob.ID, f.alice.ID)

	_, _, err := f.invites.Create(context.Background(), f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, model.ErrBlocked)
	require.Empty(t, f.bus.Events())
}

// failingNotifier fails every transactional emit.
type failingNotifier struct {
	*NotificationService
}

var errEmit = errors.New("emit failed")

func (failingNotifier) EmitTx(store.Tx, NotificationInput) (*model.Notification, Deferred, error) {
	return nil, nil, errEmit
}

func TestInviteAcceptRollsBackAsOneUnit(t *testing.T) {
	f := newInviteFixture(t)
	inv, trigger := f.invite(t)
	f.bus.Reset()

	broken := NewInviteService(f.store, failingNotifier{f.notifier}, slog.Default())
	_, err := broken.Respond(context.Background(), f.bob.ID, trigger.ID, InviteAccept)
	require.ErrorIs(t, err, errEmit)

	stored, n := f.load(t, inv.ID, trigger.ID)
	require.Equal(t, model.InvitePending, stored.Status)
	require.Equal(t, uuid.Nil, stored.GameRoomID)
	require.False(t, n.IsRead)
	require.Empty(t, f.bus.Events())

	// The untouched invite can still be answered.
	res, err := f.invites.Respond(context.Background(), f.bob.ID, trigger.ID, InviteAccept)
	require.NoError(t, err)
	require.NotNil(t, res.Room)
}
