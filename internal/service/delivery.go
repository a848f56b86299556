package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/domain/registry"
)

const presenceTimeout = 5 * time.Second

// Channel is the kind of socket a session was opened on.
type Channel string

const (
	// ChannelNotifications joins user:<id> and presence.
	ChannelNotifications Channel = "notifications"
	// ChannelChat joins chat:<username> and active_users.
	ChannelChat Channel = "chat"
	// ChannelPoll joins user:<id> for one long-poll request. It never moves presence.
	ChannelPoll Channel = "poll"
)

func (c Channel) Topics(u *model.User) []model.Topic {
	switch c {
	case ChannelChat:
		return []model.Topic{model.ChatTopic(u.Username), model.ActiveUsersTopic}
	case ChannelPoll:
		return []model.Topic{model.UserTopic(u.ID)}
	default:
		return []model.Topic{model.UserTopic(u.ID), model.PresenceTopic}
	}
}

// TracksPresence reports whether sessions on c count towards the user being online.
func (c Channel) TracksPresence() bool { return c != ChannelPoll }

func tracksPresence(conn registry.Connector) bool {
	return Channel(conn.GetMetadata().Channel).TracksPresence()
}

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (WebSocket/long-poll)
type Deliverer interface {
	// Subscribe performs the Connecting -> Open transition of a new session.
	Subscribe(ctx context.Context, contact *model.AuthContact, channel Channel, md registry.ConnectMetadata) (registry.Connector, error)
	// Unsubscribe performs the Open -> Closed transition. Safe to call more than once.
	Unsubscribe(ctx context.Context, conn registry.Connector)
	// Heartbeat renews this node's claim on the user of a live session.
	Heartbeat(ctx context.Context, conn registry.Connector)
}

type DeliveryService struct {
	node       string
	hub        registry.Hubber
	resolver   Resolver
	presence   PresenceTracker
	bufferSize int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDeliveryService returns a production-ready instance of the service.
// node names this process in the shared presence leases.
func NewDeliveryService(node string, hub registry.Hubber, resolver Resolver, presence PresenceTracker, bufferSize int, timeout time.Duration, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{
		node:       node,
		hub:        hub,
		resolver:   resolver,
		presence:   presence,
		bufferSize: bufferSize,
		timeout:    timeout,
		logger:     logger,
	}
}

// [SUBSCRIBE] HANDLES CONNECTION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, contact *model.AuthContact, channel Channel, md registry.ConnectMetadata) (registry.Connector, error) {
	user, err := s.resolver.Ensure(ctx, contact)
	if err != nil {
		return nil, err
	}

	md.Channel = string(channel)
	conn := registry.NewConnector(ctx, user.ID, user.Username, s.bufferSize, md)
	s.hub.Register(conn)

	topics := channel.Topics(user)
	for _, topic := range topics {
		s.hub.Subscribe(topic, conn)
	}
	if conn.State() == registry.StateClosed {
		s.hub.Detach(conn)
		return nil, fmt.Errorf("session closed during handshake")
	}
	conn.Open()

	if !channel.TracksPresence() {
		return conn, nil
	}

	now := time.Now()
	if _, err := s.presence.Track(ctx, user.ID, s.node, s.localSessions(user.ID), now); err != nil {
		s.logger.Warn("PRESENCE_LEASE_FAILED", slog.String("user_id", user.ID.String()), slog.Any("err", err))
	}
	if _, _, err := s.presence.SetStatus(ctx, user.ID, model.Online, now); err != nil {
		s.logger.Warn("PRESENCE_UPDATE_FAILED", slog.String("user_id", user.ID.String()), slog.Any("err", err))
	}

	conn.Send(event.NewSystemEvent(topics[0], event.Connected, event.PriorityHigh, &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  conn.GetID().String(),
		ServerVersion: model.ServerVersion,
		Message:       "You are now connected!",
	}), s.timeout)

	s.logger.Info("SESSION_OPENED",
		slog.String("conn_id", conn.GetID().String()),
		slog.String("user_id", user.ID.String()),
		slog.String("channel", string(channel)),
	)
	return conn, nil
}

// [UNSUBSCRIBE] UNCONDITIONAL CLEANUP ON EVERY EXIT PATH
func (s *DeliveryService) Unsubscribe(ctx context.Context, conn registry.Connector) {
	if _, detached := s.hub.Detach(conn); !detached || !tracksPresence(conn) {
		return
	}

	// Taken before the session scan: a session registered after the scan
	// writes online with a later timestamp and wins.
	at := time.Now()
	local := s.localSessions(conn.GetUserID())

	// The request context is usually gone by now.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), presenceTimeout)
	defer cancel()

	user := conn.GetUserID()
	live, err := s.presence.Track(ctx, user, s.node, local, at)
	if err != nil {
		s.logger.Warn("PRESENCE_LEASE_FAILED", slog.String("user_id", user.String()), slog.Any("err", err))
		// Without the shared view only this node's sessions are known.
		live = local
	}
	if live > 0 {
		return
	}

	if _, _, err := s.presence.SetStatus(ctx, user, model.Offline, at); err != nil {
		s.logger.Warn("PRESENCE_UPDATE_FAILED",
			slog.String("user_id", user.String()),
			slog.Any("err", err),
		)
	}
}

// [HEARTBEAT] Keeps the lease and the status inside the presence TTL while the socket lives.
func (s *DeliveryService) Heartbeat(ctx context.Context, conn registry.Connector) {
	if conn.State() != registry.StateOpen || !tracksPresence(conn) {
		return
	}

	user := conn.GetUserID()
	now := time.Now()
	if _, err := s.presence.Track(ctx, user, s.node, s.localSessions(user), now); err != nil {
		s.logger.Warn("PRESENCE_LEASE_FAILED", slog.String("user_id", user.String()), slog.Any("err", err))
		return
	}
	if _, err := s.presence.Touch(ctx, user, now); err != nil {
		s.logger.Warn("PRESENCE_UPDATE_FAILED", slog.String("user_id", user.String()), slog.Any("err", err))
	}
}

// localSessions counts this node's sessions of user that keep it online.
func (s *DeliveryService) localSessions(user uuid.UUID) int {
	var n int
	for _, conn := range s.hub.Sessions(user) {
		if tracksPresence(conn) {
			n++
		}
	}
	return n
}
