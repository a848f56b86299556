package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/model"
)

type InviteAction string

const (
	InviteAccept InviteAction = "accept"
	InviteReject InviteAction = "reject"
)

// InviteResult reports the outcome of a response.
type InviteResult struct {
	Status InviteAction      `json:"status"`
	Invite *model.GameInvite `json:"invite"`
	Room   *model.GameRoom   `json:"room,omitempty"`
}

type Inviter interface {
	Create(ctx context.Context, sender, receiver uuid.UUID) (*model.GameInvite, *model.Notification, error)
	// Respond applies accept or reject to the invite behind a game_invite notification.
	// All writes share one transaction; the resulting notification is published after commit.
	Respond(ctx context.Context, user, notificationID uuid.UUID, action InviteAction) (*InviteResult, error)
}

type InviteService struct {
	store    store.Storer
	notifier Notifier
	logger   *slog.Logger
}

func NewInviteService(s store.Storer, notifier Notifier, logger *slog.Logger) *InviteService {
	return &InviteService{store: s, notifier: notifier, logger: logger}
}

func (s *InviteService) Create(ctx context.Context, sender, receiver uuid.UUID) (*model.GameInvite, *model.Notification, error) {
	if sender == receiver {
		return nil, nil, fmt.Errorf("cannot invite yourself: %w", model.ErrValidation)
	}

	var (
		inv     *model.GameInvite
		n       *model.Notification
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
			return fmt.Errorf("game invite: %w", model.ErrBlocked)
		}

		_, err = tx.FindPendingInvite(sender, receiver)
		if err == nil {
			return fmt.Errorf("pending invite to this user: %w", model.ErrAlreadyExists)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		n, publish, err = s.notifier.EmitTx(tx, NotificationInput{
			Type:      model.GameInviteType,
			Recipient: receiver,
			Sender:    sender,
			Content:   from.Name() + " invited you to play a game",
		})
		if err != nil {
			return err
		}

		inv = &model.GameInvite{
			ID:             uuid.New(),
			SenderID:       sender,
			ReceiverID:     receiver,
			Status:         model.InvitePending,
			NotificationID: n.ID,
			CreatedAt:      time.Now().UTC(),
		}
		return tx.SaveInvite(inv)
	})
	if err != nil {
		return nil, nil, err
	}

	publish(ctx)
	return inv, n, nil
}

func (s *InviteService) Respond(ctx context.Context, user, notificationID uuid.UUID, action InviteAction) (*InviteResult, error) {
	if action != InviteAccept && action != InviteReject {
		return nil, fmt.Errorf("action %q: %w", action, model.ErrValidation)
	}

	var (
		result  *InviteResult
		publish Deferred
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		trigger, err := tx.GetNotification(notificationID)
		if err != nil {
			return err
		}
		if trigger.RecipientID != user || trigger.Type != model.GameInviteType {
			return fmt.Errorf("game invite notification %s: %w", notificationID, model.ErrNotFound)
		}

		inv, err := tx.GetInviteByNotification(notificationID)
		if err != nil {
			return err
		}
		if inv.Status != model.InvitePending {
			return fmt.Errorf("invite already %s: %w", inv.Status, model.ErrConflict)
		}
		me, err := tx.GetUser(user)
		if err != nil {
			return err
		}

		result = &InviteResult{Status: action, Invite: inv}
		var in NotificationInput

		if action == InviteAccept {
			room := &model.GameRoom{
				ID:        uuid.New(),
				Player1:   inv.SenderID,
				Player2:   user,
				Status:    model.GameActive,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.CreateGameRoom(room); err != nil {
				return err
			}
			inv.Status = model.InviteAccepted
			inv.GameRoomID = room.ID
			result.Room = room
			in = NotificationInput{
				Type:      model.GameReady,
				Recipient: inv.SenderID,
				Sender:    user,
				Content:   "Game with " + me.Username + " is ready!",
				Redirect:  model.GameRedirect(room.ID),
			}
		} else {
			inv.Status = model.InviteRejected
			in = NotificationInput{
				Type:      model.InviteRejectedType,
				Recipient: inv.SenderID,
				Sender:    user,
				Content:   me.Username + " rejected your game invite",
			}
		}

		if err := tx.SaveInvite(inv); err != nil {
			return err
		}
		if _, publish, err = s.notifier.EmitTx(tx, in); err != nil {
			return err
		}
		_, err = tx.MarkRead(notificationID)
		return err
	})
	if err != nil {
		s.logger.Warn("INVITE_RESPONSE_ROLLED_BACK",
			slog.String("notification_id", notificationID.String()),
			slog.String("action", string(action)),
			slog.Any("err", err),
		)
		return nil, err
	}

	// [AFTER_COMMIT]
	publish(ctx)
	return result, nil
}
