package httphandler

import "net/http"

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	target, err := pathUUID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rel, err := h.blocks.Block(r.Context(), caller(r).UserID, target)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	target, err := pathUUID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.blocks.Unblock(r.Context(), caller(r).UserID, target); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listBlocks(w http.ResponseWriter, r *http.Request) {
	out, err := h.blocks.List(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}
