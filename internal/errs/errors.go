package errs

import (
	"errors"
	"fmt"
)

// CodeError is a domain error carrying a machine-readable reason and the HTTP
// status it maps to when surfaced over REST. Websocket handlers send Reason
// back to the originating connection as an error payload.
type CodeError struct {
	Reason string
	Msg    string
	Status int
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Msg)
}

// Is matches any CodeError with the same reason, so wrapped instances still
// classify with errors.Is.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Reason == e.Reason
}

// WithMsg returns a copy with a more specific message, keeping classification.
func (e *CodeError) WithMsg(format string, args ...any) *CodeError {
	return &CodeError{
		Reason: e.Reason,
		Msg:    fmt.Sprintf(format, args...),
		Status: e.Status,
	}
}

var (
	// Authentication failures, rejected before any mutation or room join.
	ErrMissingCredential = &CodeError{Reason: "missing_credential", Msg: "authentication token is required", Status: 401}
	ErrInvalidCredential = &CodeError{Reason: "invalid_credential", Msg: "authentication token is invalid", Status: 401}
	ErrExpiredCredential = &CodeError{Reason: "expired_credential", Msg: "authentication token has expired", Status: 401}

	ErrNotAParticipant = &CodeError{Reason: "not_a_participant", Msg: "user is not a participant of this conversation", Status: 403}
	ErrNotFound        = &CodeError{Reason: "not_found", Msg: "entity not found", Status: 404}
	ErrInvalidOption   = &CodeError{Reason: "invalid_option", Msg: "poll option index out of range", Status: 400}
	ErrValidation      = &CodeError{Reason: "validation_error", Msg: "malformed payload", Status: 400}
	ErrPersistence     = &CodeError{Reason: "persistence_error", Msg: "store unavailable", Status: 500}
)

// IsAuthError reports whether err is any of the credential failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrExpiredCredential)
}

// Reason extracts the machine reason from err, or "internal_error".
func Reason(err error) string {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return "internal_error"
}

// HTTPStatus extracts the HTTP status from err, or 500.
func HTTPStatus(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 500
}
