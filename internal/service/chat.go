package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrBlockedMessage is the user-facing text of a chat frame rejected by the block policy.
const ErrBlockedMessage = "Message not sent. You have been blocked by this user."

// InboundFrame is a chat frame received from a socket.
type InboundFrame struct {
	Sender   string `json:"sender" validate:"required,max=150"`
	RoomID   string `json:"room_id" validate:"required,uuid"`
	Receiver string `json:"receiver" validate:"required,max=150"`
	Message  string `json:"message" validate:"required,max=4096"`
}

type Chatter interface {
	// Send validates, authorizes and persists the frame, then publishes it to both
	// participants' chat topics. Persistence happens-before both publishes.
	Send(ctx context.Context, username string, frame *InboundFrame) (*model.ChatMessage, error)
	CreateRoom(ctx context.Context, creator uuid.UUID, name string, members []uuid.UUID, isDirect bool) (*model.ChatRoom, error)
	GetRoom(ctx context.Context, user, roomID uuid.UUID) (*model.ChatRoom, error)
	History(ctx context.Context, user, roomID uuid.UUID, limit int) ([]*model.ChatMessage, error)
}

type ChatService struct {
	store    store.Storer
	resolver Resolver
	policy   BlockPolicy
	bus      Publisher
	validate *validator.Validate
	censor   *Censor
	logger   *slog.Logger
	tracer   trace.Tracer
}

type ChatOption func(*ChatService)

// WithCensor masks matches in message bodies before they are stored. A nil censor is a no-op.
func WithCensor(c *Censor) ChatOption {
	return func(s *ChatService) { s.censor = c }
}

func NewChatService(s store.Storer, resolver Resolver, policy BlockPolicy, bus Publisher, validate *validator.Validate, logger *slog.Logger, opts ...ChatOption) *ChatService {
	svc := &ChatService{
		store:    s,
		resolver: resolver,
		policy:   policy,
		bus:      bus,
		validate: validate,
		logger:   logger,
		tracer:   otel.Tracer("im-social/chat"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *ChatService) Send(ctx context.Context, username string, frame *InboundFrame) (*model.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send")
	defer span.End()

	// 1. [SHAPE]
	if err := s.validate.Struct(frame); err != nil {
		return nil, fmt.Errorf("chat frame: %v: %w", err, model.ErrValidation)
	}
	// 2. [AUTHORSHIP] The socket owner can only speak for themselves.
	if frame.Sender != username {
		return nil, fmt.Errorf("sender %q does not match the authenticated user: %w", frame.Sender, model.ErrValidation)
	}
	roomID := uuid.MustParse(frame.RoomID)

	// 3. [IDENTITY]
	sender, receiver, err := s.resolver.ResolvePair(ctx, frame.Sender, frame.Receiver)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("chat.sender", sender.ID.String()),
		attribute.String("chat.receiver", receiver.ID.String()),
	)

	// 4. [POLICY] Evaluated before anything is persisted or published.
	blocked, err := s.policy.IsBlocked(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("block check: %w", err)
	}
	if blocked {
		return nil, fmt.Errorf("%s: %w", ErrBlockedMessage, model.ErrBlocked)
	}

	// 5-6. [PERSIST]
	msg := &model.ChatMessage{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Body:       s.censor.Apply(frame.Message),
		CreatedAt:  time.Now().UTC(),
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		room, err := tx.GetRoom(roomID)
		if err != nil {
			return err
		}
		if !room.HasMember(sender.ID) || !room.HasMember(receiver.ID) {
			return fmt.Errorf("room %s has no such participants: %w", roomID, model.ErrNotFound)
		}
		return tx.SaveMessage(msg)
	})
	if err != nil {
		return nil, err
	}

	// [FAN_OUT] Sender echo first, then the receiver copy.
	delivery := model.ChatDelivery{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		Sender:    sender.Username,
		Receiver:  receiver.Username,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
	echo, inbox := delivery, delivery
	echo.IsSent = true
	inbox.IsSent = false

	s.bus.Publish(ctx, event.NewChatEvent(model.ChatTopic(sender.Username), &echo))
	s.bus.Publish(ctx, event.NewChatEvent(model.ChatTopic(receiver.Username), &inbox))

	s.logger.Debug("CHAT_MESSAGE_SENT",
		slog.String("message_id", msg.ID.String()),
		slog.String("room_id", roomID.String()),
	)
	return msg, nil
}

func (s *ChatService) CreateRoom(ctx context.Context, creator uuid.UUID, name string, members []uuid.UUID, isDirect bool) (*model.ChatRoom, error) {
	members = lo.Uniq(append([]uuid.UUID{creator}, members...))
	if len(members) < 2 {
		return nil, fmt.Errorf("a room needs at least two members: %w", model.ErrValidation)
	}
	if isDirect && len(members) != 2 {
		return nil, fmt.Errorf("a direct room has exactly two members: %w", model.ErrValidation)
	}

	room := &model.ChatRoom{
		ID:        uuid.New(),
		Name:      name,
		IsDirect:  isDirect,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		for _, m := range members {
			if _, err := tx.GetUser(m); err != nil {
				return err
			}
		}
		if isDirect {
			blocked, err := isBlockedTx(tx, members[0], members[1])
			if err != nil {
				return err
			}
			if blocked {
				return fmt.Errorf("direct room: %w", model.ErrBlocked)
			}
			// A direct room between two users is unique: hand back the existing one.
			existing, err := tx.FindDirectRoom(members[0], members[1])
			if err == nil {
				room = existing
				return nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
		}
		return tx.CreateRoom(room)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *ChatService) GetRoom(ctx context.Context, user, roomID uuid.UUID) (*model.ChatRoom, error) {
	var room *model.ChatRoom
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		room, err = tx.GetRoom(roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !room.HasMember(user) {
		return nil, fmt.Errorf("room %s: %w", roomID, model.ErrForbidden)
	}
	return room, nil
}

func (s *ChatService) History(ctx context.Context, user, roomID uuid.UUID, limit int) ([]*model.ChatMessage, error) {
	if _, err := s.GetRoom(ctx, user, roomID); err != nil {
		return nil, err
	}

	var out []*model.ChatMessage
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListMessages(roomID, limit)
		return err
	})
	return out, err
}
