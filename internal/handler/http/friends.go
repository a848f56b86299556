package httphandler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/service"
)

type friendRequestBody struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
}

type actionBody struct {
	Action string `json:"action" validate:"required,oneof=accept reject cancel"`
}

func (h *Handler) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body friendRequestBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := h.friends.Request(r.Context(), caller(r).UserID, body.ReceiverID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) respondFriendRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body actionBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := h.friends.Respond(r.Context(), caller(r).UserID, id, service.FriendAction(body.Action))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) listFriends(w http.ResponseWriter, r *http.Request) {
	out, err := h.friends.Friends(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *Handler) listPendingRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.friends.Pending(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *Handler) listSentRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.friends.Sent(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *Handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	friend, err := pathUUID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.friends.Remove(r.Context(), caller(r).UserID, friend); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty lists as [] on the wire.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
