// Package apperror holds the DomainError type shared by every module and the
// error kinds the API exposes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Jyok1m/ipseis-backend/internal/database"
)

// Kind classifies a DomainError independently of its business code.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindInvalidState  Kind = "invalid_state"
	KindTransient     Kind = "transient"
	KindNotification  Kind = "notification"
	KindInternal      Kind = "internal"
)

// DomainError is a structured, self-describing domain error.
// It carries HTTP/RFC7807-friendly metadata so a shared formatter can convert any
// domain error into a Problem response without enumerating error types.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrContractNotFound").
	Code string

	Kind Kind

	// HTTPStatus is the HTTP status suggested for this error.
	HTTPStatus int

	// Title is a short human summary; if empty the formatter defaults to StatusText(HTTPStatus).
	Title string

	// Message is primarily for logs. When Detail is empty it is used as the public detail.
	Message string

	// Detail is a user-friendly, safe explanation for clients.
	Detail string

	// TypeURI is an RFC7807 type URI, e.g. "urn:problem:contract/err-invalid-transition".
	TypeURI string

	// Context is an optional extension payload for clients.
	Context any

	cause error
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is compares by Code so copies made through WithCause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error wrapping cause.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail returns a copy with a public-friendly detail message.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithContext returns a copy carrying an extension payload for clients.
func (e *DomainError) WithContext(ctx any) *DomainError {
	cp := *e
	cp.Context = ctx
	return &cp
}

// --- RFC7807 mapping accessors (satisfy httpx.DomainProblem) ---

func (e *DomainError) ProblemCode() string { return e.Code }
func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}
func (e *DomainError) ProblemTitle() string { return e.Title }
func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }

// --- Constructors used by modules to declare their sentinels ---

func newError(kind Kind, status int, module, code, message string) *DomainError {
	return &DomainError{
		Code:       code,
		Kind:       kind,
		HTTPStatus: status,
		Title:      http.StatusText(status),
		Message:    message,
		TypeURI:    "urn:problem:" + module + "/" + Kebab(code),
	}
}

func Validation(module, code, message string) *DomainError {
	return newError(KindValidation, http.StatusBadRequest, module, code, message)
}

func NotFound(module, code, message string) *DomainError {
	return newError(KindNotFound, http.StatusNotFound, module, code, message)
}

func Unauthorized(module, code, message string) *DomainError {
	return newError(KindAuthorization, http.StatusUnauthorized, module, code, message)
}

func Forbidden(module, code, message string) *DomainError {
	return newError(KindAuthorization, http.StatusForbidden, module, code, message)
}

func Conflict(module, code, message string) *DomainError {
	return newError(KindConflict, http.StatusConflict, module, code, message)
}

func InvalidState(module, code, message string) *DomainError {
	return newError(KindInvalidState, http.StatusConflict, module, code, message)
}

// --- Shared sentinels ---

var (
	// ErrTemporarilyUnavailable is returned when the datastore timed out or is
	// unreachable. Clients may retry.
	ErrTemporarilyUnavailable = &DomainError{
		Code:       "DB_TIMEOUT",
		Kind:       KindTransient,
		HTTPStatus: http.StatusServiceUnavailable,
		Title:      "Service Unavailable",
		Message:    "temporary connection problem, please retry in a few moments",
		TypeURI:    "urn:problem:db-timeout",
		Context:    map[string]any{"retryable": true},
	}

	// ErrEmailDelivery is returned when an email that is the purpose of the
	// request could not be sent. The data mutation that preceded it is kept.
	ErrEmailDelivery = &DomainError{
		Code:       "EMAIL_ERROR",
		Kind:       KindNotification,
		HTTPStatus: http.StatusBadGateway,
		Title:      "Bad Gateway",
		Message:    "email could not be sent",
		TypeURI:    "urn:problem:email-error",
	}

	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		Kind:       KindInternal,
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:internal",
	}
)

// Internal wraps an unexpected infrastructure error. Datastore timeouts and
// outages become ErrTemporarilyUnavailable; everything else is ErrInternal.
// The cause is kept for logs and never rendered to clients.
func Internal(err error) *DomainError {
	if database.IsTransient(err) {
		return ErrTemporarilyUnavailable.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

// KindOf returns the Kind of the first DomainError in err's chain.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
