package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// User-facing fallback messages.
const (
	MsgUnreachable = "Cannot reach server."
	MsgUnknown     = "An unknown error occurred"
	MsgCancelled   = "Request was cancelled."
)

// Error is a normalized backend failure. Status 0 means the backend could
// not be reached at all.
type Error struct {
	Status     int
	StatusText string
	Message    string
	Err        error

	fromBody bool
}

func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("backend unreachable: %v", e.Err)
		}
		return "backend unreachable"
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an Error from a non-success response. The message is the
// first of: a JSON "message" field, a raw non-JSON body, a JSON "error"
// field, "<status> <statusText>".
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, StatusText: http.StatusText(status)}
	e.Message = extractMessage(body)
	e.fromBody = e.Message != ""
	if !e.fromBody {
		e.Message = fmt.Sprintf("%d %s", status, e.StatusText)
	}
	return e
}

// ServerMessage returns the message the backend sent, or "" when Message
// was synthesized from the status line.
func (e *Error) ServerMessage() string {
	if !e.fromBody {
		return ""
	}
	return e.Message
}

func extractMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		return string(body)
	}

	res := gjson.ParseBytes(body)
	switch {
	case res.IsObject():
		for _, key := range []string{"message", "error"} {
			if m := res.Get(key); m.Type == gjson.String && m.String() != "" {
				return m.String()
			}
		}
	case res.Type == gjson.String:
		return res.String()
	}
	return ""
}

// IsConnectivity reports whether err means the backend was unreachable.
func IsConnectivity(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0 && !errors.Is(err, context.Canceled)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message turns any error from this package into a display string. Raw
// transport errors are never returned verbatim.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return MsgCancelled
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgUnknown
}
