package debrid

import (
	"errors"
	"fmt"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// Error is a categorized failure from a debrid provider call.
type Error struct {
	Kind       models.ErrorKind
	Op         string // provider operation, e.g. "add_magnet"
	Provider   string
	StatusCode int // HTTP status when the remote answered, 0 otherwise
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	switch {
	case e.Provider != "" && e.Op != "":
		return fmt.Sprintf("[%s] %s %s: %s", e.Kind, e.Provider, e.Op, msg)
	case e.Provider != "":
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Provider, msg)
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so errors.Is(err, ErrRemoteUnavailable) works for any
// provider and operation.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrMissingCredential = &Error{Kind: models.ErrorKindMissingCredential, Message: "debrid credential missing or malformed"}
	ErrRemoteUnavailable = &Error{Kind: models.ErrorKindRemoteUnavailable, Message: "remote service unavailable"}
	ErrMalformedResponse = &Error{Kind: models.ErrorKindMalformedResponse, Message: "malformed response"}
	ErrNotCached         = &Error{Kind: models.ErrorKindNotCached, Message: "torrent not cached"}
)

func newRemoteError(provider, op string, status int, cause error) *Error {
	return &Error{
		Kind:       models.ErrorKindRemoteUnavailable,
		Op:         op,
		Provider:   provider,
		StatusCode: status,
		Message:    "request failed",
		Cause:      cause,
	}
}

func newMalformedError(provider, op string, cause error) *Error {
	return &Error{
		Kind:     models.ErrorKindMalformedResponse,
		Op:       op,
		Provider: provider,
		Message:  "unexpected payload",
		Cause:    cause,
	}
}

func newCredentialError(provider, op string, status int) *Error {
	return &Error{
		Kind:       models.ErrorKindMissingCredential,
		Op:         op,
		Provider:   provider,
		StatusCode: status,
		Message:    "authentication rejected",
	}
}

// KindOf classifies any error returned by a provider. Unknown errors,
// timeouts and cancellations count as the remote being unavailable.
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorKindNone
	}
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return models.ErrorKindRemoteUnavailable
}
