package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for propagation and HTTP mapping.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindNotFound       Kind = "not_found"
	KindInvalidState   Kind = "invalid_state"
	KindConflict       Kind = "conflict"
	KindUnauthorized   Kind = "unauthorized"
	KindOutOfArea      Kind = "out_of_service_area"
	KindUnavailable    Kind = "unavailable"
	KindSessionExpired Kind = "session_expired"
	KindUpstream       Kind = "upstream_error"
	KindInternal       Kind = "internal_error"
)

// Error is the typed error shared by every layer of the service.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports blocking input that must never reach the network.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewInvalidStateError reports a refused state transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewConflictError reports a concurrent modification.
func NewConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// NewOutOfServiceAreaError reports a point rejected by the service boundary.
func NewOutOfServiceAreaError(msg string) *Error {
	return &Error{Kind: KindOutOfArea, Message: msg}
}

// NewUnavailableError reports a transport failure on a fail-closed check.
func NewUnavailableError(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// NewSessionExpiredError reports a server-signalled session expiry.
func NewSessionExpiredError(msg string) *Error {
	return &Error{Kind: KindSessionExpired, Message: msg}
}

// NewUpstreamError reports a non-success answer from the operator API.
func NewUpstreamError(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var target *Error
	return errors.As(err, &target) && target.Kind == kind
}

// HTTPStatus maps an error kind to a response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindUnauthorized, KindSessionExpired:
		return http.StatusUnauthorized
	case KindOutOfArea:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
