package fudo

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by APIErrors carrying a 401 status.
	ErrUnauthorized = errors.New("fudo: unauthorized")
	// ErrMissingCredentials is returned when no API key or secret is configured.
	ErrMissingCredentials = errors.New("fudo: missing credentials")
)

// APIError is a non-2xx answer from the external POS.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fudo: %s %s returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("fudo: %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
