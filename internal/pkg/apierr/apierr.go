package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind standardizes failure semantics across services and the HTTP layer.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindOwnership    Kind = "ownership"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream"
	KindParse        Kind = "parse"
	KindRateLimited  Kind = "rate_limited"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, op, message string, cause error) error {
	return &Error{
		Kind:    kind,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, op, err.Error(), err)
}

func Validation(op, message string) error { return New(KindValidation, op, message, nil) }
func NotFound(op, message string) error   { return New(KindNotFound, op, message, nil) }
func Ownership(op, message string) error  { return New(KindOwnership, op, message, nil) }
func Conflict(op, message string) error   { return New(KindConflict, op, message, nil) }
func Forbidden(op, message string) error  { return New(KindForbidden, op, message, nil) }
func Parse(op, message string, cause error) error {
	return New(KindParse, op, message, cause)
}
func Upstream(op string, cause error) error {
	msg := "upstream request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return New(KindUpstream, op, msg, cause)
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the kind, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// Retriable reports whether repeating the same request may succeed.
func Retriable(err error) bool {
	switch KindOf(err) {
	case KindUpstream, KindParse, KindRateLimited:
		return true
	default:
		return false
	}
}

// HTTPStatus maps err onto a response status. Errors without a kind are 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindOwnership, KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstream, KindParse:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to return to callers.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	if e.Kind == KindInternal {
		return "internal error"
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return string(e.Kind)
}
