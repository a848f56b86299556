// Package marshaller maps domain outcomes onto transport representations.
package marshaller

import (
	"errors"
	"net/http"

	"github.com/webitel/im-social-service/internal/domain/model"
)

// Error codes shared by REST bodies and socket error frames.
const (
	CodeValidation    = "validation"
	CodeBlocked       = "blocked"
	CodeNotFound      = "not_found"
	CodeForbidden     = "forbidden"
	CodeConflict      = "conflict"
	CodeUnauthorized  = "unauthorized"
	CodeInternal      = "internal"
	internalErrorText = "internal error"
)

var errorTable = []struct {
	target error
	status int
	code   string
}{
	{model.ErrValidation, http.StatusBadRequest, CodeValidation},
	{model.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{model.ErrBlocked, http.StatusForbidden, CodeBlocked},
	{model.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{model.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{model.ErrConflict, http.StatusConflict, CodeConflict},
	{model.ErrAlreadyExists, http.StatusConflict, CodeConflict},
}

// MapError resolves err to an HTTP status, a stable code and a client-safe message.
// Unknown errors are reported as internal without leaking their text.
func MapError(err error) (status int, code, message string) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.status, e.code, err.Error()
		}
	}
	return http.StatusInternalServerError, CodeInternal, internalErrorText
}
