package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/model"
)

type FriendAction string

const (
	FriendAccept FriendAction = "accept"
	FriendReject FriendAction = "reject"
	FriendCancel FriendAction = "cancel"
)

type Friender interface {
	// Request sends a friend request. A pending request in the opposite direction
	// is accepted instead, and no second relation is created.
	Request(ctx context.Context, sender, receiver uuid.UUID) (*model.Friendship, error)
	// Respond applies accept/reject (receiver only) or cancel (sender only) to a pending request.
	Respond(ctx context.Context, user, friendshipID uuid.UUID, action FriendAction) (*model.Friendship, error)
	Friends(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error)
	Pending(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error)
	Sent(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error)
	Remove(ctx context.Context, user, friend uuid.UUID) error
}

type FriendService struct {
	store    store.Storer
	notifier Notifier
}

func NewFriendService(s store.Storer, notifier Notifier) *FriendService {
	return &FriendService{store: s, notifier: notifier}
}

func (s *FriendService) Request(ctx context.Context, sender, receiver uuid.UUID) (*model.Friendship, error) {
	if sender == receiver {
		return nil, fmt.Errorf("cannot befriend yourself: %w", model.ErrValidation)
	}

	var (
		result  *model.Friendship
		publish Deferred
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		from, err := tx.GetUser(sender)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(receiver); err != nil {
			return err
		}
		blocked, err := isBlockedTx(tx, sender, receiver)
		if err != nil {
			return err
		}
		if blocked {
			return fmt.Errorf("friend request: %w", model.ErrBlocked)
		}

		now := time.Now().UTC()
		existing, err := tx.FindFriendship(sender, receiver)
		switch {
		case errors.Is(err, model.ErrNotFound):
			result = &model.Friendship{ID: uuid.New(), SenderID: sender, ReceiverID: receiver, CreatedAt: now}

		case err != nil:
			return err

		case existing.Status == model.FriendshipAccepted:
			return fmt.Errorf("already friends: %w", model.ErrAlreadyExists)

		case existing.Status == model.FriendshipPending && existing.SenderID == sender:
			return fmt.Errorf("request already sent: %w", model.ErrAlreadyExists)

		case existing.Status == model.FriendshipPending:
			// [RECIPROCAL] The other side asked first: accept their request.
			existing.Status = model.FriendshipAccepted
			existing.UpdatedAt = now
			if err := tx.SaveFriendship(existing); err != nil {
				return err
			}
			result = existing
			_, publish, err = s.notifier.EmitTx(tx, NotificationInput{
				Type:      model.FriendAccepted,
				Recipient: existing.SenderID,
				Sender:    sender,
				Content:   from.Name() + " accepted your friend request",
			})
			return err

		default:
			// A rejected relation is reopened in the new direction.
			existing.SenderID, existing.ReceiverID = sender, receiver
			existing.CreatedAt = now
			result = existing
		}

		result.Status = model.FriendshipPending
		result.UpdatedAt = now
		if err := tx.SaveFriendship(result); err != nil {
			return err
		}
		_, publish, err = s.notifier.EmitTx(tx, NotificationInput{
			Type:      model.FriendRequest,
			Recipient: receiver,
			Sender:    sender,
			Content:   from.Name() + " sent you a friend request",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx)
	return result, nil
}

func (s *FriendService) Respond(ctx context.Context, user, friendshipID uuid.UUID, action FriendAction) (*model.Friendship, error) {
	var (
		result  *model.Friendship
		publish Deferred
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		publish = nil
		f, err := tx.GetFriendship(friendshipID)
		if err != nil {
			return err
		}
		if f.Status != model.FriendshipPending {
			return fmt.Errorf("friend request is no longer pending: %w", model.ErrConflict)
		}

		switch action {
		case FriendAccept, FriendReject:
			if f.ReceiverID != user {
				return fmt.Errorf("only the receiver may %s: %w", action, model.ErrForbidden)
			}
		case FriendCancel:
			if f.SenderID != user {
				return fmt.Errorf("only the sender may cancel: %w", model.ErrForbidden)
			}
			result = f
			return tx.DeleteFriendship(f)
		default:
			return fmt.Errorf("action %q: %w", action, model.ErrValidation)
		}

		f.UpdatedAt = time.Now().UTC()
		f.Status = model.FriendshipRejected
		if action == FriendAccept {
			f.Status = model.FriendshipAccepted
		}
		if err := tx.SaveFriendship(f); err != nil {
			return err
		}
		result = f

		if action != FriendAccept {
			return nil
		}
		me, err := tx.GetUser(user)
		if err != nil {
			return err
		}
		_, publish, err = s.notifier.EmitTx(tx, NotificationInput{
			Type:      model.FriendAccepted,
			Recipient: f.SenderID,
			Sender:    user,
			Content:   me.Name() + " accepted your friend request",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if publish != nil {
		publish(ctx)
	}
	return result, nil
}

func (s *FriendService) list(ctx context.Context, user uuid.UUID, keep func(*model.Friendship) bool) ([]*model.Friendship, error) {
	var out []*model.Friendship
	err := s.store.View(ctx, func(tx store.Tx) error {
		all, err := tx.ListFriendships(user)
		if err != nil {
			return err
		}
		for _, f := range all {
			if keep(f) {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

func (s *FriendService) Friends(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error) {
	return s.list(ctx, user, func(f *model.Friendship) bool {
		return f.Status == model.FriendshipAccepted
	})
}

func (s *FriendService) Pending(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error) {
	return s.list(ctx, user, func(f *model.Friendship) bool {
		return f.Status == model.FriendshipPending && f.ReceiverID == user
	})
}

func (s *FriendService) Sent(ctx context.Context, user uuid.UUID) ([]*model.Friendship, error) {
	return s.list(ctx, user, func(f *model.Friendship) bool {
		return f.Status == model.FriendshipPending && f.SenderID == user
	})
}

func (s *FriendService) Remove(ctx context.Context, user, friend uuid.UUID) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		f, err := tx.FindFriendship(user, friend)
		if err != nil {
			return err
		}
		if f.Status != model.FriendshipAccepted {
			return fmt.Errorf("not friends: %w", model.ErrNotFound)
		}
		return tx.DeleteFriendship(f)
	})
}
