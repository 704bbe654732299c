// Package failure classifies session-local errors into the kinds surfaced to users.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the user-facing category of a session failure.
type Kind string

const (
	KindPermission Kind = "permission"
	KindCapture    Kind = "capture"
	KindEncoding   Kind = "encoding"
	KindNetwork    Kind = "network"
	KindBackend    Kind = "backend"
	KindDecode     Kind = "decode"
)

// Error is a classified failure. Status and Body are set for backend errors only.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" during ")
		b.WriteString(e.Op)
	}
	if e.Kind == KindBackend {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
		if body := strings.TrimSpace(e.Body); body != "" {
			b.WriteString(": ")
			b.WriteString(body)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindDecode}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Permission wraps a denied microphone or camera access.
func Permission(op string, err error) *Error { return newError(KindPermission, op, err) }

// Capture wraps a hardware-level recording or photo failure.
func Capture(op string, err error) *Error { return newError(KindCapture, op, err) }

// Encoding wraps an image or audio re-encoding failure.
func Encoding(op string, err error) *Error { return newError(KindEncoding, op, err) }

// Network wraps a transport failure.
func Network(op string, err error) *Error { return newError(KindNetwork, op, err) }

// Decode wraps a malformed response body or inline audio payload.
func Decode(op string, err error) *Error { return newError(KindDecode, op, err) }

// Backend reports a non-2xx response with its raw body.
func Backend(op string, status int, body string) *Error {
	return &Error{Kind: KindBackend, Op: op, Status: status, Body: body}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage converts any session error into the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return "Something went wrong: " + err.Error()
	}
	switch fe.Kind {
	case KindPermission:
		return "Microphone or camera access denied"
	case KindCapture:
		return "Capture failed: " + causeText(fe)
	case KindEncoding:
		return "Could not prepare the photo or recording: " + causeText(fe)
	case KindNetwork:
		return "Network error: " + causeText(fe)
	case KindBackend:
		body := strings.TrimSpace(fe.Body)
		if body == "" {
			return fmt.Sprintf("Server error (HTTP %d)", fe.Status)
		}
		return fmt.Sprintf("Server error (HTTP %d): %s", fe.Status, body)
	case KindDecode:
		return "Unreadable server response: " + causeText(fe)
	default:
		return fe.Error()
	}
}

func causeText(fe *Error) string {
	if fe.Err == nil {
		return fe.Op
	}
	return fe.Err.Error()
}
