package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func (t *badgerTx) CreateRoom(r *model.ChatRoom) error {
	if r.IsDirect {
		if len(r.Members) != 2 {
			return fmt.Errorf("direct room needs two members: %w", model.ErrValidation)
		}
		key := directRoomKey(r.Members[0], r.Members[1])
		taken, err := t.exists(key)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("direct room: %w", model.ErrAlreadyExists)
		}
		if err := t.setID(key, r.ID); err != nil {
			return err
		}
	}
	return t.set(roomKey(r.ID), r)
}

func (t *badgerTx) GetRoom(id uuid.UUID) (*model.ChatRoom, error) {
	r := new(model.ChatRoom)
	if err := t.get(roomKey(id), r); err != nil {
		return nil, fmt.Errorf("room %s: %w", id, err)
	}
	return r, nil
}

func (t *badgerTx) FindDirectRoom(a, b uuid.UUID) (*model.ChatRoom, error) {
	id, err := t.getID(directRoomKey(a, b))
	if err != nil {
		return nil, fmt.Errorf("direct room: %w", err)
	}
	return t.GetRoom(id)
}

func (t *badgerTx) SaveMessage(m *model.ChatMessage) error {
	if _, err := t.GetRoom(m.RoomID); err != nil {
		return err
	}
	return t.set(messageKey(m.RoomID, m.CreatedAt, m.ID), m)
}

func (t *badgerTx) ListMessages(roomID uuid.UUID, limit int) ([]*model.ChatMessage, error) {
	keys := t.scanKeys(messagePrefix(roomID), true, limit)

	out := make([]*model.ChatMessage, 0, len(keys))
	for _, key := range keys {
		m := new(model.ChatMessage)
		if err := t.get(key, m); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, m)
	}
	// Scanned newest first; history reads oldest first.
	slices.Reverse(out)
	return out, nil
}
