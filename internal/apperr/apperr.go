package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Kind classifies an application error.
type Kind string

// Error kinds surfaced to API callers.
const (
	KindValidation          Kind = "validation_error"
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindDuplicateOrder      Kind = "duplicate_order"
	KindCodeSpaceExhausted  Kind = "code_space_exhausted"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindUpstream            Kind = "upstream_failure"
	KindUnauthorized        Kind = "unauthorized"
)

// Error is an application error carrying a kind and a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrDuplicateOrder      = &Error{Kind: KindDuplicateOrder}
	ErrCodeSpaceExhausted  = &Error{Kind: KindCodeSpaceExhausted}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
)

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a ValidationError.
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound builds a NotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// InvalidState builds an InvalidState error.
func InvalidState(message string) *Error { return New(KindInvalidState, message) }

// Upstream wraps a payment gateway or mail transport failure.
func Upstream(message string, err error) *Error { return Wrap(KindUpstream, message, err) }

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status class returned to clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState, KindInsufficientBalance, KindDuplicateOrder, KindCapacityExceeded:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes the structured error payload for err.
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	var appErr *Error
	if !errors.As(err, &appErr) || status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	if appErr == nil {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	message := appErr.Message
	if message == "" {
		message = string(appErr.Kind)
	}
	c.JSON(status, gin.H{"error": message, "code": appErr.Kind})
}
