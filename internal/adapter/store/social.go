package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func (t *badgerTx) Block(rel *model.BlockRelation) error {
	taken, err := t.exists(blockKey(rel.BlockerID, rel.BlockedID))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("block: %w", model.ErrAlreadyExists)
	}
	return t.set(blockKey(rel.BlockerID, rel.BlockedID), rel)
}

func (t *badgerTx) Unblock(blocker, blocked uuid.UUID) error {
	ok, err := t.exists(blockKey(blocker, blocked))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("block: %w", model.ErrNotFound)
	}
	return t.txn.Delete(blockKey(blocker, blocked))
}

func (t *badgerTx) HasBlock(blocker, blocked uuid.UUID) (bool, error) {
	return t.exists(blockKey(blocker, blocked))
}

func (t *badgerTx) ListBlocked(blocker uuid.UUID) ([]*model.BlockRelation, error) {
	keys := t.scanKeys(blockPrefix(blocker), false, 0)
	out := make([]*model.BlockRelation, 0, len(keys))
	for _, key := range keys {
		rel := new(model.BlockRelation)
		if err := t.get(key, rel); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// SaveFriendship writes f and its pair and per-user indexes. A different relation
// for the same pair is rejected.
func (t *badgerTx) SaveFriendship(f *model.Friendship) error {
	owner, err := t.getID(friendPairKey(f.SenderID, f.ReceiverID))
	switch {
	case err == nil && owner != f.ID:
		return fmt.Errorf("friendship: %w", model.ErrAlreadyExists)
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return err
	}

	if err := t.set(friendshipKey(f.ID), f); err != nil {
		return err
	}
	if err := t.setID(friendPairKey(f.SenderID, f.ReceiverID), f.ID); err != nil {
		return err
	}
	if err := t.setID(friendUserKey(f.SenderID, f.ID), f.ID); err != nil {
		return err
	}
	return t.setID(friendUserKey(f.ReceiverID, f.ID), f.ID)
}

func (t *badgerTx) GetFriendship(id uuid.UUID) (*model.Friendship, error) {
	f := new(model.Friendship)
	if err := t.get(friendshipKey(id), f); err != nil {
		return nil, fmt.Errorf("friendship %s: %w", id, err)
	}
	return f, nil
}

func (t *badgerTx) FindFriendship(a, b uuid.UUID) (*model.Friendship, error) {
	id, err := t.getID(friendPairKey(a, b))
	if err != nil {
		return nil, fmt.Errorf("friendship: %w", err)
	}
	return t.GetFriendship(id)
}

func (t *badgerTx) DeleteFriendship(f *model.Friendship) error {
	for _, key := range [][]byte{
		friendshipKey(f.ID),
		friendPairKey(f.SenderID, f.ReceiverID),
		friendUserKey(f.SenderID, f.ID),
		friendUserKey(f.ReceiverID, f.ID),
	} {
		if err := t.txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (t *badgerTx) ListFriendships(user uuid.UUID) ([]*model.Friendship, error) {
	ids, err := t.scanIDs(friendUserPrefix(user), false, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Friendship, 0, len(ids))
	for _, id := range ids {
		f, err := t.GetFriendship(id)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
