package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindBadRequest
	KindGone
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindGone:
		return "gone"
	default:
		return "internal"
	}
}

// Error is an application error with a user-visible detail message
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind and detail.
// A target with an empty Detail matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Detail == "" || t.Detail == e.Detail
}

// Unauthorized returns a KindUnauthorized error
func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

// Forbidden returns a KindForbidden error
func Forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

// NotFound returns a KindNotFound error
func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

// BadRequest returns a KindBadRequest error
func BadRequest(detail string) *Error {
	return &Error{Kind: KindBadRequest, Detail: detail}
}

// Gone returns a KindGone error
func Gone(detail string) *Error {
	return &Error{Kind: KindGone, Detail: detail}
}

// Internal wraps err as a KindInternal error
func Internal(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf returns the kind of err, or KindInternal if err is not an *Error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of kind k
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// DetailOf returns the user-visible detail of err.
// Errors that are not *Error values yield a generic message.
func DetailOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Detail
	}
	return "Internal server error"
}
