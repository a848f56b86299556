package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// BlockPolicy answers whether two users may reach each other.
type BlockPolicy interface {
	// IsBlocked is symmetric: true if either user blocks the other.
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type Blocker interface {
	BlockPolicy
	Block(ctx context.Context, blocker, blocked uuid.UUID) (*model.BlockRelation, error)
	Unblock(ctx context.Context, blocker, blocked uuid.UUID) error
	List(ctx context.Context, blocker uuid.UUID) ([]*model.BlockRelation, error)
}

type BlockService struct {
	store store.Storer
}

func NewBlockService(s store.Storer) *BlockService {
	return &BlockService{store: s}
}

func (s *BlockService) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var blocked bool
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		blocked, err = isBlockedTx(tx, a, b)
		return err
	})
	return blocked, err
}

// isBlockedTx evaluates the symmetric check inside an existing transaction.
func isBlockedTx(tx store.BlockStore, a, b uuid.UUID) (bool, error) {
	ab, err := tx.HasBlock(a, b)
	if err != nil || ab {
		return ab, err
	}
	return tx.HasBlock(b, a)
}

// Block records the relation and drops any friendship between the pair.
func (s *BlockService) Block(ctx context.Context, blocker, blocked uuid.UUID) (*model.BlockRelation, error) {
	if blocker == blocked {
		return nil, fmt.Errorf("cannot block yourself: %w", model.ErrValidation)
	}

	rel := &model.BlockRelation{BlockerID: blocker, BlockedID: blocked, CreatedAt: time.Now().UTC()}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(blocked); err != nil {
			return err
		}
		if err := tx.Block(rel); err != nil {
			return err
		}
		f, err := tx.FindFriendship(blocker, blocked)
		if err != nil {
			return ignoreNotFound(err)
		}
		return tx.DeleteFriendship(f)
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *BlockService) Unblock(ctx context.Context, blocker, blocked uuid.UUID) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return tx.Unblock(blocker, blocked)
	})
}

func (s *BlockService) List(ctx context.Context, blocker uuid.UUID) ([]*model.BlockRelation, error) {
	var out []*model.BlockRelation
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBlocked(blocker)
		return err
	})
	return out, err
}
