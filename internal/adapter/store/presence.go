package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// PutPresence is last-write-wins on UpdatedAt. Equal timestamps keep the stored value.
func (t *badgerTx) PutPresence(p *model.Presence) (bool, error) {
	current, err := t.GetPresence(p.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return false, err
	case current.UpdatedAt >= p.UpdatedAt:
		return false, nil
	}
	return true, t.set(presenceKey(p.UserID), p)
}

func (t *badgerTx) GetPresence(user uuid.UUID) (*model.Presence, error) {
	p := new(model.Presence)
	if err := t.get(presenceKey(user), p); err != nil {
		return nil, fmt.Errorf("presence %s: %w", user, err)
	}
	return p, nil
}

func (t *badgerTx) PutLease(l *model.PresenceLease) error {
	if l.Sessions <= 0 {
		return t.txn.Delete(leaseKey(l.UserID, l.Node))
	}
	return t.set(leaseKey(l.UserID, l.Node), l)
}

func (t *badgerTx) ListLeases(user uuid.UUID) ([]*model.PresenceLease, error) {
	keys := t.scanKeys(leasePrefix(user), false, 0)
	out := make([]*model.PresenceLease, 0, len(keys))
	for _, key := range keys {
		l := new(model.PresenceLease)
		if err := t.get(key, l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
