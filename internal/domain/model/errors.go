package model

import "errors"

// Error taxonomy shared by the request handlers and the socket handlers.
var (
	ErrValidation    = errors.New("validation failed")
	ErrBlocked       = errors.New("blocked")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
)
