package model

import (
	"errors"
	"net/http"
)

// Result codes surfaced to callers. They double as HTTP status codes.
const (
	CodeForbidden     = http.StatusForbidden
	CodeNotFound      = http.StatusNotFound
	CodeAccountBound  = http.StatusConflict
	CodeInvalid       = http.StatusBadRequest
	CodeInternalError = http.StatusInternalServerError
)

var (
	// ErrNotFound is returned when an operation targets an id with no backing
	// record, or whose paired owner/account entry is missing.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not the owner (facilities)
	// or not the administrator (technician status and renewal).
	ErrForbidden = errors.New("forbidden")

	// ErrAccountBound is returned when registering a technician for an
	// account that is already bound to another technician.
	ErrAccountBound = errors.New("account already bound to a technician")

	// ErrInvalidPrincipal is returned when an empty principal is supplied
	// where an identity is required.
	ErrInvalidPrincipal = errors.New("invalid principal")
)

// Code maps err to its result code. Unknown errors map to 500.
func Code(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrAccountBound):
		return CodeAccountBound
	case errors.Is(err, ErrInvalidPrincipal):
		return CodeInvalid
	default:
		return CodeInternalError
	}
}
