package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(t.TempDir(), false, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	alice := &model.User{ID: uuid.New(), Username: "alice", CreatedAt: time.Now().UTC()}
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.CreateUser(alice) }))

	dup := &model.User{ID: uuid.New(), Username: "alice"}
	err := s.Update(ctx, func(tx Tx) error { return tx.CreateUser(dup) })
	req.ErrorIs(err, model.ErrAlreadyExists)

	renamed := &model.User{ID: alice.ID, Username: "alicia", DisplayName: "Alicia"}
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.UpsertUser(renamed) }))

	req.NoError(s.View(ctx, func(tx Tx) error {
		u, err := tx.GetUserByName("alicia")
		req.NoError(err)
		req.Equal(alice.ID, u.ID)
		req.Equal("Alicia", u.Name())

		_, err = tx.GetUserByName("alice")
		req.ErrorIs(err, model.ErrNotFound)
		return nil
	}))
}

func TestUpdateRollsBackOnError(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	room := &model.GameRoom{ID: uuid.New(), Status: model.GameActive}
	err := s.Update(ctx, func(tx Tx) error {
		req.NoError(tx.CreateGameRoom(room))
		return boom
	})
	req.ErrorIs(err, boom)

	req.NoError(s.View(ctx, func(tx Tx) error {
		_, err := tx.GetGameRoom(room.ID)
		req.ErrorIs(err, model.ErrNotFound)
		return nil
	}))
}

func TestMessagesOrderedByCreation(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	room := &model.ChatRoom{ID: uuid.New(), IsDirect: true, Members: []uuid.UUID{a, b}}
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.CreateRoom(room) }))

	again := &model.ChatRoom{ID: uuid.New(), IsDirect: true, Members: []uuid.UUID{b, a}}
	req.ErrorIs(s.Update(ctx, func(tx Tx) error { return tx.CreateRoom(again) }), model.ErrAlreadyExists)

	at := time.Now().UTC()
	bodies := []string{"first", "second", "third"}
	for i, body := range bodies {
		m := &model.ChatMessage{ID: uuid.New(), RoomID: room.ID, SenderID: a, ReceiverID: b, Body: body, CreatedAt: at.Add(time.Duration(i) * time.Second)}
		req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveMessage(m) }))
	}

	req.NoError(s.View(ctx, func(tx Tx) error {
		all, err := tx.ListMessages(room.ID, 0)
		req.NoError(err)
		req.Len(all, 3)
		for i, m := range all {
			req.Equal(bodies[i], m.Body)
		}

		last, err := tx.ListMessages(room.ID, 2)
		req.NoError(err)
		req.Equal("second", last[0].Body)
		req.Equal("third", last[1].Body)

		found, err := tx.FindDirectRoom(b, a)
		req.NoError(err)
		req.Equal(room.ID, found.ID)
		return nil
	}))

	orphan := &model.ChatMessage{ID: uuid.New(), RoomID: uuid.New(), CreatedAt: at}
	req.ErrorIs(s.Update(ctx, func(tx Tx) error { return tx.SaveMessage(orphan) }), model.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	recipient := uuid.New()
	at := time.Now().UTC()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := &model.Notification{ID: uuid.New(), RecipientID: recipient, Type: model.FriendRequest, CreatedAt: at.Add(time.Duration(i) * time.Second)}
		ids = append(ids, n.ID)
		req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveNotification(n) }))
	}

	req.NoError(s.Update(ctx, func(tx Tx) error {
		changed, err := tx.MarkRead(ids[2])
		req.NoError(err)
		req.True(changed)
		changed, err = tx.MarkRead(ids[2])
		req.NoError(err)
		req.False(changed)
		return nil
	}))

	req.NoError(s.View(ctx, func(tx Tx) error {
		all, err := tx.ListNotifications(recipient, false, 0)
		req.NoError(err)
		req.Len(all, 3)
		req.Equal(ids[2], all[0].ID, "newest first")

		unread, err := tx.ListNotifications(recipient, true, 0)
		req.NoError(err)
		req.Len(unread, 2)
		return nil
	}))
}

func TestBlocks(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.Block(&model.BlockRelation{BlockerID: a, BlockedID: b}) }))
	req.ErrorIs(s.Update(ctx, func(tx Tx) error { return tx.Block(&model.BlockRelation{BlockerID: a, BlockedID: b}) }), model.ErrAlreadyExists)

	req.NoError(s.View(ctx, func(tx Tx) error {
		ok, err := tx.HasBlock(a, b)
		req.NoError(err)
		req.True(ok)
		ok, err = tx.HasBlock(b, a)
		req.NoError(err)
		req.False(ok, "the store records direction; symmetry is a policy concern")
		list, err := tx.ListBlocked(a)
		req.NoError(err)
		req.Len(list, 1)
		return nil
	}))

	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.Unblock(a, b) }))
	req.ErrorIs(s.Update(ctx, func(tx Tx) error { return tx.Unblock(a, b) }), model.ErrNotFound)
}

func TestFriendshipPairIsUnique(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	f := &model.Friendship{ID: uuid.New(), SenderID: a, ReceiverID: b, Status: model.FriendshipPending}
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveFriendship(f) }))

	reverse := &model.Friendship{ID: uuid.New(), SenderID: b, ReceiverID: a, Status: model.FriendshipPending}
	req.ErrorIs(s.Update(ctx, func(tx Tx) error { return tx.SaveFriendship(reverse) }), model.ErrAlreadyExists)

	f.Status = model.FriendshipAccepted
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveFriendship(f) }))

	req.NoError(s.View(ctx, func(tx Tx) error {
		got, err := tx.FindFriendship(b, a)
		req.NoError(err)
		req.Equal(model.FriendshipAccepted, got.Status)
		list, err := tx.ListFriendships(b)
		req.NoError(err)
		req.Len(list, 1)
		return nil
	}))

	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.DeleteFriendship(f) }))
	req.NoError(s.View(ctx, func(tx Tx) error {
		_, err := tx.FindFriendship(a, b)
		req.ErrorIs(err, model.ErrNotFound)
		list, err := tx.ListFriendships(a)
		req.NoError(err)
		req.Empty(list)
		return nil
	}))
}

func TestInvitesPendingIndex(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	inv := &model.GameInvite{ID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New(), Status: model.InvitePending, NotificationID: uuid.New()}

	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveInvite(inv) }))
	req.NoError(s.View(ctx, func(tx Tx) error {
		got, err := tx.FindPendingInvite(inv.SenderID, inv.ReceiverID)
		req.NoError(err)
		req.Equal(inv.ID, got.ID)
		got, err = tx.GetInviteByNotification(inv.NotificationID)
		req.NoError(err)
		req.Equal(inv.ID, got.ID)
		return nil
	}))

	inv.Status = model.InviteRejected
	req.NoError(s.Update(ctx, func(tx Tx) error { return tx.SaveInvite(inv) }))
	req.NoError(s.View(ctx, func(tx Tx) error {
		_, err := tx.FindPendingInvite(inv.SenderID, inv.ReceiverID)
		req.ErrorIs(err, model.ErrNotFound)
		return nil
	}))
}

func TestPresenceLastWriteWins(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	now := time.Now().UnixNano()

	put := func(status model.PresenceStatus, at int64) bool {
		var applied bool
		req.NoError(s.Update(ctx, func(tx Tx) error {
			var err error
			applied, err = tx.PutPresence(&model.Presence{UserID: user, Status: status, UpdatedAt: at})
			return err
		}))
		return applied
	}

	req.True(put(model.Online, now))
	req.False(put(model.Offline, now-1), "stale write is discarded")
	req.False(put(model.Offline, now), "equal timestamp keeps stored value")
	req.True(put(model.InGame, now+1))

	req.NoError(s.View(ctx, func(tx Tx) error {
		p, err := tx.GetPresence(user)
		req.NoError(err)
		req.Equal(model.InGame, p.Status)
		return nil
	}))
}

func TestPresenceLeases(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()
	user, other := uuid.New(), uuid.New()
	now := time.Now().UnixNano()

	req.NoError(s.Update(ctx, func(tx Tx) error {
		for _, l := range []*model.PresenceLease{
			{UserID: user, Node: "node-a", Sessions: 2, SeenAt: now},
			{UserID: user, Node: "node-b", Sessions: 1, SeenAt: now},
			{UserID: other, Node: "node-a", Sessions: 1, SeenAt: now},
		} {
			if err := tx.PutLease(l); err != nil {
				return err
			}
		}
		return nil
	}))

	leases := func(id uuid.UUID) []*model.PresenceLease {
		var out []*model.PresenceLease
		req.NoError(s.View(ctx, func(tx Tx) error {
			var err error
			out, err = tx.ListLeases(id)
			return err
		}))
		return out
	}
	req.Len(leases(user), 2)
	req.Len(leases(other), 1)

	// Zero sessions releases the node's claim.
	req.NoError(s.Update(ctx, func(tx Tx) error {
		return tx.PutLease(&model.PresenceLease{UserID: user, Node: "node-a", SeenAt: now + 1})
	}))
	got := leases(user)
	req.Len(got, 1)
	req.Equal("node-b", got[0].Node)
	req.Equal(1, got[0].Sessions)
}

func TestCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Update(ctx, func(tx Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
