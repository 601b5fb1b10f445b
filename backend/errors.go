package backend

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned (wrapped) for any 401 from an authenticated endpoint.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx, non-401 response.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// TransportError covers failures to reach the proxy or to decode its reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// LoginError is a rejected /auth/login. Detail is shown to the user verbatim.
type LoginError struct {
	StatusCode int
	Detail     string
}

func (e *LoginError) Error() string {
	if e.Detail == "" {
		return "Unauthorized"
	}
	return e.Detail
}

// IsUnauthorized reports whether err came from a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
