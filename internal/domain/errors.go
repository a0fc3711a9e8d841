package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrBadRequest      = errors.New("bad request")
	ErrUnprocessable   = errors.New("unprocessable")
	ErrReferential     = errors.New("dangling reference")
	ErrInternal        = errors.New("internal error")
)

// Error carries one of the sentinel kinds above plus a human readable
// message. errors.Is matches both the kind and the wrapped cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func AlreadyExists(format string, args ...any) error {
	return newError(ErrAlreadyExists, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return newError(ErrUnauthenticated, format, args...)
}

func BadRequest(format string, args ...any) error {
	return newError(ErrBadRequest, format, args...)
}

func Unprocessable(format string, args ...any) error {
	return newError(ErrUnprocessable, format, args...)
}

func Referential(format string, args ...any) error {
	return newError(ErrReferential, format, args...)
}

func Internal(format string, args ...any) error {
	return newError(ErrInternal, format, args...)
}

// Wrap attaches kind to a backend error unless err already carries a kind.
func Wrap(kind error, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != ErrInternal || errors.Is(err, ErrInternal) {
		return err
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

var kinds = []error{
	ErrNotFound,
	ErrAlreadyExists,
	ErrForbidden,
	ErrUnauthenticated,
	ErrBadRequest,
	ErrUnprocessable,
	ErrReferential,
}

// KindOf returns the sentinel kind of err, ErrInternal when none matches.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}
