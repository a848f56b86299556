package httphandler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/webitel/im-social-service/infra/server/http/interceptors"
	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/handler/marshaller"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err with the status its sentinel maps to.
func WriteError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := marshaller.MapError(err)
	if status == http.StatusInternalServerError {
		logger.Error("REQUEST_FAILED",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(h.logger, w, r, err)
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("request body: %v: %w", err, model.ErrValidation)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("request body: %v: %w", err, model.ErrValidation)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", name, model.ErrValidation)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", name, model.ErrValidation)
	}
	return n, nil
}

// caller returns the authenticated user. The auth middleware guarantees presence.
func caller(r *http.Request) *model.AuthContact {
	contact, _ := interceptors.GetAuthContact(r.Context())
	return contact
}
