package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the backend has no order with the requested id.
var ErrNotFound = errors.New("not found")

// ServerError is a non-success response from the backend.
// Message holds the backend's {"error": ...} text when it sent one.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *ServerError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// TransportError means the request was sent but no usable response came back:
// the connection failed, the body could not be read, or it did not decode.
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

// Message returns the text to show a user for err, or fallback when the
// backend did not explain the failure.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		if serverErr.Message != "" {
			return serverErr.Message
		}
		return fallback
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return fmt.Sprintf("%s (%v)", fallback, transportErr.Err)
	}

	return err.Error()
}
