package httphandler

import (
	"net/http"
	"time"

	"github.com/webitel/im-social-service/internal/domain/model"
)

type presenceBody struct {
	Status model.PresenceStatus `json:"status" validate:"required,oneof=online offline in_game"`
}

func (h *Handler) setPresence(w http.ResponseWriter, r *http.Request) {
	var body presenceBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writePresence(w, r, body.Status)
}

// heartbeat keeps the caller's status inside the presence TTL. Clients call it
// periodically while a page is open. in_game survives it; offline becomes online.
func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	p, err := h.presence.Touch(r.Context(), caller(r).UserID, time.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) writePresence(w http.ResponseWriter, r *http.Request, status model.PresenceStatus) {
	p, _, err := h.presence.SetStatus(r.Context(), caller(r).UserID, status, time.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getPresence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.presence.GetStatus(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
