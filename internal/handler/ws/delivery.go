package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/infra/server/http/interceptors"
	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/domain/registry"
	"github.com/webitel/im-social-service/internal/handler/marshaller"
	wsmarshaller "github.com/webitel/im-social-service/internal/handler/marshaller/ws"
	"github.com/webitel/im-social-service/internal/service"
)

// directBuffer bounds error frames waiting for the write pump.
const directBuffer = 16

// frameHandler answers one inbound text frame. A non-nil reply goes to this socket only.
type frameHandler func(ctx context.Context, data []byte) []byte

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	chatter   service.Chatter
	upgrader  websocket.Upgrader
	cfg       config.WSConfig
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, chatter service.Chatter, cfg *config.Config) *WSHandler {
	origins := cfg.HTTP.AllowedOrigins
	return &WSHandler{
		logger:    logger.With(slog.String("component", "ws")),
		deliverer: deliverer,
		chatter:   chatter,
		cfg:       cfg.WS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Empty list: same-origin policy is left to the reverse proxy.
				return len(origins) == 0 || slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// Notifications serves /ws/notifications. Inbound frames are ignored.
func (h *WSHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	contact, ok := interceptors.GetAuthContact(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.serve(w, r, contact, service.ChannelNotifications, nil)
}

// Chat serves /ws/chat/{username}. A socket can only be opened on one's own inbox.
func (h *WSHandler) Chat(w http.ResponseWriter, r *http.Request) {
	contact, ok := interceptors.GetAuthContact(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if chi.URLParam(r, "username") != contact.Username {
		http.Error(w, "chat inbox belongs to another user", http.StatusForbidden)
		return
	}
	h.serve(w, r, contact, service.ChannelChat, h.chatFrame(contact))
}

func (h *WSHandler) chatFrame(contact *model.AuthContact) frameHandler {
	return func(ctx context.Context, data []byte) []byte {
		frame := new(service.InboundFrame)
		if err := json.Unmarshal(data, frame); err != nil {
			return wsmarshaller.ErrorFrame("invalid frame: "+err.Error(), marshaller.CodeValidation)
		}

		if _, err := h.chatter.Send(ctx, contact.Username, frame); err != nil {
			if errors.Is(err, model.ErrBlocked) {
				return wsmarshaller.ErrorFrame(service.ErrBlockedMessage, marshaller.CodeBlocked)
			}
			_, code, msg := marshaller.MapError(err)
			if code == marshaller.CodeInternal {
				h.logger.Error("CHAT_SEND_FAILED", slog.String("user", contact.Username), slog.Any("err", err))
			}
			return wsmarshaller.ErrorFrame(msg, code)
		}
		return nil
	}
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, contact *model.AuthContact, channel service.Channel, onFrame frameHandler) {
	// 1. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS_UPGRADE_FAILED", slog.Any("err", err), slog.String("remote", r.RemoteAddr))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 2. SUBSCRIBE VIA THE SAME SERVICE
	conn, err := h.deliverer.Subscribe(ctx, contact, channel, registry.ConnectMetadata{
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		_, code, msg := marshaller.MapError(err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code+": "+msg),
			time.Now().Add(h.cfg.WriteTimeout))
		return
	}
	// [UNCONDITIONAL_CLEANUP] Every exit path below ends the session.
	defer h.deliverer.Unsubscribe(ctx, conn)

	h.logger.Info("WS_OPENED",
		slog.String("user_id", contact.UserID.String()),
		slog.String("conn_id", conn.GetID().String()),
		slog.String("channel", string(channel)),
	)

	direct := make(chan []byte, directBuffer)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		h.readPump(ctx, ws, onFrame, direct)
	}()

	h.writePump(ctx, ws, conn, direct)

	// Unblocks a read pump still waiting on the network.
	_ = ws.Close()
	<-readDone

	h.logger.Info("WS_CLOSED",
		slog.String("user_id", contact.UserID.String()),
		slog.String("conn_id", conn.GetID().String()),
		slog.Uint64("dropped", conn.Dropped()),
	)
}

// readPump owns every read on ws.
func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, onFrame frameHandler, direct chan<- []byte) {
	ws.SetReadLimit(h.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WS_READ_FAILED", slog.Any("err", err))
			}
			return
		}
		if onFrame == nil || mt != websocket.TextMessage {
			continue
		}

		reply := onFrame(ctx, data)
		if reply == nil {
			continue
		}
		select {
		case direct <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// writePump owns every write on ws.
func (h *WSHandler) writePump(ctx context.Context, ws *websocket.Conn, conn registry.Connector, direct <-chan []byte) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	write := func(mt int, data []byte) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := ws.WriteMessage(mt, data); err != nil {
			h.logger.Debug("WS_WRITE_FAILED", slog.Any("err", err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-conn.Done():
			// Closed by the hub (shutdown or eviction).
			write(websocket.TextMessage, wsmarshaller.DisconnectedFrame("session closed by server", "SHUTDOWN"))
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
			return

		case ev := <-conn.Recv():
			data, err := wsmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				h.logger.Error("WS_MARSHAL_FAILED", slog.String("event_id", ev.GetID()), slog.Any("err", err))
				continue
			}
			if !write(websocket.TextMessage, data) {
				return
			}

		case data := <-direct:
			if !write(websocket.TextMessage, data) {
				return
			}

		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
			hbCtx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			h.deliverer.Heartbeat(hbCtx, conn)
			cancel()
		}
	}
}
