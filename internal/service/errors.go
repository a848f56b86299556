package service

import (
	"errors"

	"github.com/webitel/im-social-service/internal/domain/model"
)

func ignoreNotFound(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}
