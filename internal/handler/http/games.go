package httphandler

import (
	"net/http"

	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/service"
)

type inviteResponse struct {
	Invite       *model.GameInvite   `json:"invite"`
	Notification *model.Notification `json:"notification"`
}

type inviteActionBody struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

func (h *Handler) sendInvite(w http.ResponseWriter, r *http.Request) {
	var body friendRequestBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	inv, n, err := h.invites.Create(r.Context(), caller(r).UserID, body.ReceiverID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{Invite: inv, Notification: n})
}

// respondInvite answers the invite behind a game_invite notification.
func (h *Handler) respondInvite(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "notificationID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body inviteActionBody
	if err := h.decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.invites.Respond(r.Context(), caller(r).UserID, id, service.InviteAction(body.Action))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
