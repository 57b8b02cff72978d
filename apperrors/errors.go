// Package apperrors defines the error taxonomy shared by services and controllers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP translation.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindBusinessRule    Kind = "business_rule"
	KindExternalService Kind = "external_service"
	KindAborted         Kind = "aborted"
	KindInternal        Kind = "internal"
	KindRateLimited     Kind = "rate_limited"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
)

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages.
	Fields map[string]string
	// UpstreamStatus and UpstreamDetails are set for external service failures.
	UpstreamStatus  int
	UpstreamDetails interface{}
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports malformed or missing input.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, nil, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func BusinessRule(format string, args ...interface{}) *Error {
	return newError(KindBusinessRule, nil, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, nil, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, nil, format, args...)
}

func RateLimited(format string, args ...interface{}) *Error {
	return newError(KindRateLimited, nil, format, args...)
}

// ExternalService wraps a failed call to a partner API, keeping the upstream status and body.
func ExternalService(status int, details interface{}, err error, format string, args ...interface{}) *Error {
	e := newError(KindExternalService, err, format, args...)
	e.UpstreamStatus = status
	e.UpstreamDetails = details
	return e
}

// Aborted marks a multi-step mutation that was rolled back.
func Aborted(err error, format string, args ...interface{}) *Error {
	return newError(KindAborted, err, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return newError(KindInternal, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps an error to the status code returned to API callers.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		if e.UpstreamStatus >= 400 {
			return e.UpstreamStatus
		}
		return http.StatusBadGateway
	case KindAborted:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to API callers.
func PublicMessage(err error) string {
	e, ok := As(err)
	if !ok || e.Kind == KindInternal {
		return "Something went wrong. Please try again or contact support"
	}
	return e.Message
}
