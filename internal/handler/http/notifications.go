package httphandler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

const defaultNotificationLimit = 50

type markReadBody struct {
	IDs     []uuid.UUID `json:"ids" validate:"omitempty,max=500"`
	MarkAll bool        `json:"mark_all"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultNotificationLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	unread := r.URL.Query().Get("unread") == "true"

	out, err := h.notifications.List(r.Context(), caller(r).UserID, unread, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), caller(r).UserID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markManyRead(w http.ResponseWriter, r *http.Request) {
	var body markReadBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if body.MarkAll == (len(body.IDs) > 0) {
		h.fail(w, r, fmt.Errorf("set exactly one of ids or mark_all: %w", model.ErrValidation))
		return
	}

	n, err := h.notifications.MarkManyRead(r.Context(), caller(r).UserID, body.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
