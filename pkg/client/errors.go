package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by errors.Is against an *APIError.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrAccountBound = errors.New("account already bound")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a failure envelope returned by the registry.
type APIError struct {
	Status  int    // HTTP status
	Code    int    // result code from the envelope
	Message string // transport failures only
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("registry error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("registry error %d", e.Code)
}

// Is maps result codes to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	case ErrAccountBound:
		return e.Code == http.StatusConflict
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	}
	return false
}
