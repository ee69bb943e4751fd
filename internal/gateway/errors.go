package gateway

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/filebox/internal/registry"
)

// Kind is the stable machine-readable error code surfaced to callers.
// The set is closed: every error leaving the gateway carries exactly one.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidState   Kind = "INVALID_STATE"
	KindConflict       Kind = "CONFLICT"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error is the gateway's boundary error. Message is safe to show to callers;
// the wrapped cause is for logs only and never serialized.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the error kind, defaulting to KindInternal for anything
// that escaped without classification.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func authorizationErr(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// notFoundErr is deliberately uniform: absent, cross-tenant, and deleted
// resources are indistinguishable to the caller.
func notFoundErr() *Error {
	return &Error{Kind: KindNotFound, Message: "file not found"}
}

func invalidStateErr(current registry.Status) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("operation not allowed in state %s", current),
	}
}

func conflictErr(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func internalErr(cause error) *Error {
	return &Error{
		Kind:      KindInternal,
		Message:   "internal error",
		Retryable: true,
		cause:     cause,
	}
}
