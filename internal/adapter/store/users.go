package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func (t *badgerTx) CreateUser(u *model.User) error {
	taken, err := t.exists(usernameKey(u.Username))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("username %q: %w", u.Username, model.ErrAlreadyExists)
	}
	if err := t.set(userKey(u.ID), u); err != nil {
		return err
	}
	return t.setID(usernameKey(u.Username), u.ID)
}

func (t *badgerTx) UpsertUser(u *model.User) error {
	current, err := t.GetUser(u.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return t.CreateUser(u)
	case err != nil:
		return err
	}

	if current.Username != u.Username {
		owner, err := t.getID(usernameKey(u.Username))
		if err == nil && owner != u.ID {
			return fmt.Errorf("username %q: %w", u.Username, model.ErrAlreadyExists)
		}
		if err := t.txn.Delete(usernameKey(current.Username)); err != nil {
			return err
		}
	}
	u.CreatedAt = current.CreatedAt
	if err := t.set(userKey(u.ID), u); err != nil {
		return err
	}
	return t.setID(usernameKey(u.Username), u.ID)
}

func (t *badgerTx) GetUser(id uuid.UUID) (*model.User, error) {
	u := new(model.User)
	if err := t.get(userKey(id), u); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (t *badgerTx) GetUserByName(username string) (*model.User, error) {
	id, err := t.getID(usernameKey(username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return t.GetUser(id)
}
