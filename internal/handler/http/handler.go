// Package httphandler exposes the social actions as a REST API. Every mutation
// goes through a service, which persists first and publishes after commit.
package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/webitel/im-social-service/internal/domain/registry"
	"github.com/webitel/im-social-service/internal/service"
)

type Handler struct {
	friends       service.Friender
	blocks        service.Blocker
	invites       service.Inviter
	notifications service.Notifier
	chat          service.Chatter
	presence      service.PresenceTracker
	hub           registry.Hubber
	resolver      service.Resolver
	poll          http.HandlerFunc
	validate      *validator.Validate
	logger        *slog.Logger
}

type Deps struct {
	Friends       service.Friender
	Blocks        service.Blocker
	Invites       service.Inviter
	Notifications service.Notifier
	Chat          service.Chatter
	Presence      service.PresenceTracker
	Hub           registry.Hubber
	Resolver      service.Resolver
	// Poll serves GET /notifications/poll when set.
	Poll     http.HandlerFunc
	Validate *validator.Validate
	Logger   *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		friends:       d.Friends,
		blocks:        d.Blocks,
		invites:       d.Invites,
		notifications: d.Notifications,
		chat:          d.Chat,
		presence:      d.Presence,
		hub:           d.Hub,
		resolver:      d.Resolver,
		poll:          d.Poll,
		validate:      d.Validate,
		logger:        d.Logger.With(slog.String("component", "api")),
	}
}

// Routes mounts the authenticated API. The caller installs the auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.ensureUser)

	r.Route("/friends", func(r chi.Router) {
		r.Get("/", h.listFriends)
		r.Delete("/{userID}", h.removeFriend)
		r.Post("/requests", h.sendFriendRequest)
		r.Get("/requests/pending", h.listPendingRequests)
		r.Get("/requests/sent", h.listSentRequests)
		r.Post("/requests/{id}", h.respondFriendRequest)
	})

	r.Route("/blocks", func(r chi.Router) {
		r.Get("/", h.listBlocks)
		r.Post("/{userID}", h.block)
		r.Delete("/{userID}", h.unblock)
	})

	r.Route("/games/invites", func(r chi.Router) {
		r.Post("/", h.sendInvite)
		r.Post("/{notificationID}", h.respondInvite)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		if h.poll != nil {
			r.Get("/poll", h.poll)
		}
		r.Post("/read", h.markManyRead)
		r.Post("/{id}/read", h.markRead)
	})

	r.Route("/chat/rooms", func(r chi.Router) {
		r.Post("/", h.createRoom)
		r.Get("/{roomID}", h.getRoom)
		r.Get("/{roomID}/messages", h.roomHistory)
	})

	r.Route("/presence", func(r chi.Router) {
		r.Post("/", h.setPresence)
		r.Post("/heartbeat", h.heartbeat)
		r.Get("/{userID}", h.getPresence)
	})
}

// ensureUser mirrors the token identity into the store so that the caller can
// be referenced by other users' actions.
func (h *Handler) ensureUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.resolver.Ensure(r.Context(), caller(r)); err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
