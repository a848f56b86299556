package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func (t *badgerTx) CreateGameRoom(r *model.GameRoom) error {
	taken, err := t.exists(gameRoomKey(r.ID))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("game room %s: %w", r.ID, model.ErrAlreadyExists)
	}
	return t.set(gameRoomKey(r.ID), r)
}

func (t *badgerTx) GetGameRoom(id uuid.UUID) (*model.GameRoom, error) {
	r := new(model.GameRoom)
	if err := t.get(gameRoomKey(id), r); err != nil {
		return nil, fmt.Errorf("game room %s: %w", id, err)
	}
	return r, nil
}

// SaveInvite keeps the pending index in step with the invite status.
func (t *badgerTx) SaveInvite(inv *model.GameInvite) error {
	if err := t.set(inviteKey(inv.ID), inv); err != nil {
		return err
	}
	if inv.NotificationID != uuid.Nil {
		if err := t.setID(inviteByNotificationKey(inv.NotificationID), inv.ID); err != nil {
			return err
		}
	}

	pending := pendingInviteKey(inv.SenderID, inv.ReceiverID)
	if inv.Status == model.InvitePending {
		return t.setID(pending, inv.ID)
	}
	if owner, err := t.getID(pending); err == nil && owner == inv.ID {
		return t.txn.Delete(pending)
	}
	return nil
}

func (t *badgerTx) GetInvite(id uuid.UUID) (*model.GameInvite, error) {
	inv := new(model.GameInvite)
	if err := t.get(inviteKey(id), inv); err != nil {
		return nil, fmt.Errorf("invite %s: %w", id, err)
	}
	return inv, nil
}

func (t *badgerTx) GetInviteByNotification(notificationID uuid.UUID) (*model.GameInvite, error) {
	id, err := t.getID(inviteByNotificationKey(notificationID))
	if err != nil {
		return nil, fmt.Errorf("invite for notification %s: %w", notificationID, err)
	}
	return t.GetInvite(id)
}

func (t *badgerTx) FindPendingInvite(sender, receiver uuid.UUID) (*model.GameInvite, error) {
	id, err := t.getID(pendingInviteKey(sender, receiver))
	if err != nil {
		return nil, fmt.Errorf("pending invite: %w", err)
	}
	return t.GetInvite(id)
}
