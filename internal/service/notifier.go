package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// NotificationInput describes a notification to create.
type NotificationInput struct {
	Type      model.NotificationType
	Recipient uuid.UUID
	Sender    uuid.UUID
	Content   string
	Redirect  string
}

// Deferred publishes events produced inside a transaction. Call it only after commit.
type Deferred func(ctx context.Context)

type Notifier interface {
	// Emit persists the notification then publishes it to the recipient's personal topic.
	Emit(ctx context.Context, in NotificationInput) (*model.Notification, error)
	// EmitTx persists inside tx and returns the publish to run after commit.
	EmitTx(tx store.Tx, in NotificationInput) (*model.Notification, Deferred, error)
	List(ctx context.Context, user uuid.UUID, unreadOnly bool, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, user, id uuid.UUID) error
	// MarkManyRead flips the given notifications, or every unread one when ids is empty.
	MarkManyRead(ctx context.Context, user uuid.UUID, ids []uuid.UUID) (int, error)
}

type NotificationService struct {
	store  store.Storer
	bus    Publisher
	logger *slog.Logger
}

func NewNotificationService(s store.Storer, bus Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: s, bus: bus, logger: logger}
}

func (s *NotificationService) Emit(ctx context.Context, in NotificationInput) (*model.Notification, error) {
	var (
		n       *model.Notification
		publish Deferred
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, publish, err = s.EmitTx(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx)
	return n, nil
}

func (s *NotificationService) EmitTx(tx store.Tx, in NotificationInput) (*model.Notification, Deferred, error) {
	if !in.Type.Valid() {
		return nil, nil, fmt.Errorf("notification type %q: %w", in.Type, model.ErrValidation)
	}
	if in.Recipient == uuid.Nil {
		return nil, nil, fmt.Errorf("notification recipient: %w", model.ErrValidation)
	}

	n := &model.Notification{
		ID:          uuid.New(),
		RecipientID: in.Recipient,
		SenderID:    in.Sender,
		Type:        in.Type,
		Content:     in.Content,
		RedirectURL: in.Redirect,
		CreatedAt:   time.Now().UTC(),
	}
	if in.Sender != uuid.Nil {
		if sender, err := tx.GetUser(in.Sender); err == nil {
			n.SenderName = sender.Username
		}
	}

	if err := tx.SaveNotification(n); err != nil {
		return nil, nil, fmt.Errorf("save notification: %w", err)
	}

	return n, func(ctx context.Context) {
		s.logger.Debug("NOTIFICATION_EMITTED",
			slog.String("id", n.ID.String()),
			slog.String("type", string(n.Type)),
			slog.String("recipient", n.RecipientID.String()),
		)
		s.bus.Publish(ctx, event.NewNotificationEvent(n))
	}, nil
}

func (s *NotificationService) List(ctx context.Context, user uuid.UUID, unreadOnly bool, limit int) ([]*model.Notification, error) {
	var out []*model.Notification
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListNotifications(user, unreadOnly, limit)
		return err
	})
	return out, err
}

func (s *NotificationService) MarkRead(ctx context.Context, user, id uuid.UUID) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return markReadTx(tx, user, id)
	})
}

// markReadTx flips a notification owned by user.
func markReadTx(tx store.NotificationStore, user, id uuid.UUID) error {
	n, err := tx.GetNotification(id)
	if err != nil {
		return err
	}
	if n.RecipientID != user {
		return fmt.Errorf("notification %s: %w", id, model.ErrForbidden)
	}
	_, err = tx.MarkRead(id)
	return err
}

func (s *NotificationService) MarkManyRead(ctx context.Context, user uuid.UUID, ids []uuid.UUID) (int, error) {
	changed := 0
	err := s.store.Update(ctx, func(tx store.Tx) error {
		changed = 0
		targets := ids
		if len(targets) == 0 {
			unread, err := tx.ListNotifications(user, true, 0)
			if err != nil {
				return err
			}
			targets = lo.Map(unread, func(n *model.Notification, _ int) uuid.UUID { return n.ID })
		}

		for _, id := range targets {
			n, err := tx.GetNotification(id)
			if err != nil {
				return err
			}
			if n.RecipientID != user {
				return fmt.Errorf("notification %s: %w", id, model.ErrForbidden)
			}
			ok, err := tx.MarkRead(id)
			if err != nil {
				return err
			}
			if ok {
				changed++
			}
		}
		return nil
	})
	return changed, err
}
