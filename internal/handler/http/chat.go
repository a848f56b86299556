package httphandler

import (
	"net/http"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 100

type createRoomBody struct {
	Name     string      `json:"name" validate:"max=255"`
	Members  []uuid.UUID `json:"members" validate:"required,min=1,max=100"`
	IsDirect bool        `json:"is_direct"`
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var body createRoomBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	room, err := h.chat.CreateRoom(r.Context(), caller(r).UserID, body.Name, body.Members, body.IsDirect)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "roomID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	room, err := h.chat.GetRoom(r.Context(), caller(r).UserID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *Handler) roomHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "roomID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.chat.History(r.Context(), caller(r).UserID, id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}
