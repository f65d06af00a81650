package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors forming the domain error taxonomy
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("invalid request")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error carries the failing operation and a user-presentable message
// alongside the taxonomy sentinel it wraps.
type Error struct {
	Op      string // Operation that failed, e.g. "projects.RemoveMember"
	Kind    error  // One of the sentinel errors above
	Message string // Short human-readable message for the caller
	Err     error  // Underlying cause, if any
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against either the taxonomy sentinel or the underlying cause
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target) || (e.Err != nil && errors.Is(e.Err, target))
}

// New builds a taxonomy error with a formatted message
func New(kind error, op, format string, args ...interface{}) *Error {
	return &Error{
		Op:      op,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches an operation and taxonomy kind to an underlying error
func Wrap(err error, kind error, op string) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Unauthorized reports whether err classifies as an authentication failure
func Unauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// Forbidden reports whether err classifies as a permission failure
func Forbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// NotFound reports whether err classifies as a missing resource
func NotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// BadRequest reports whether err classifies as an invariant violation
func BadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// Conflict reports whether err classifies as a uniqueness violation
func Conflict(err error) bool { return errors.Is(err, ErrConflict) }

// UserMessage returns the short presentable message for err, falling back
// to the taxonomy sentinel's text for non-taxonomy errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Kind != nil {
			return e.Kind.Error()
		}
	}
	return ErrInternal.Error()
}
