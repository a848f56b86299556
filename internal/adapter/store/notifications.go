package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func (t *badgerTx) SaveNotification(n *model.Notification) error {
	existed, err := t.exists(notificationKey(n.ID))
	if err != nil {
		return err
	}
	if err := t.set(notificationKey(n.ID), n); err != nil {
		return err
	}
	if existed {
		return nil
	}
	return t.setID(notificationIndexKey(n.RecipientID, n.CreatedAt, n.ID), n.ID)
}

func (t *badgerTx) GetNotification(id uuid.UUID) (*model.Notification, error) {
	n := new(model.Notification)
	if err := t.get(notificationKey(id), n); err != nil {
		return nil, fmt.Errorf("notification %s: %w", id, err)
	}
	return n, nil
}

func (t *badgerTx) ListNotifications(recipient uuid.UUID, unreadOnly bool, limit int) ([]*model.Notification, error) {
	// The read filter applies after the scan, so the index is walked without a limit.
	ids, err := t.scanIDs(notificationIndexPrefix(recipient), true, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Notification, 0, len(ids))
	for _, id := range ids {
		n, err := t.GetNotification(id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (t *badgerTx) MarkRead(id uuid.UUID) (bool, error) {
	n, err := t.GetNotification(id)
	if err != nil {
		return false, err
	}
	if n.IsRead {
		return false, nil
	}
	n.IsRead = true
	return true, t.set(notificationKey(id), n)
}
