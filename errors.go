// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package taskrouter

import (
	"errors"
	"fmt"
)

// Error codes for the taskrouter client.
const (
	// ErrCodeInvalidArgument is returned for malformed caller input or a
	// malformed event payload. No request is sent and no state is mutated.
	ErrCodeInvalidArgument = -30001

	// ErrCodeUnknownRoute is returned when a route name is not registered.
	ErrCodeUnknownRoute = -30002

	// ErrCodeArgumentCountMismatch is returned when the number of positional
	// arguments does not match the number of placeholders in a route template.
	ErrCodeArgumentCountMismatch = -30003

	// ErrCodeRemoteCallFailed is returned when the underlying request failed.
	// Local state is left exactly as it was before the call.
	ErrCodeRemoteCallFailed = -30004

	// ErrCodeReconciliationFailed is returned when a successful response could
	// not be parsed into valid entity fields. Local state remains at its
	// last-known-good value.
	ErrCodeReconciliationFailed = -30005
)

// Error represents a taskrouter client error with a code and message.
type Error struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("taskrouter error %d: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("taskrouter error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error. Two Errors match when their codes match.
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// NewInvalidArgument creates an InvalidArgument error.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: message}
}

// NewUnknownRoute creates an UnknownRoute error for the given route name.
func NewUnknownRoute(name string) *Error {
	return &Error{Code: ErrCodeUnknownRoute, Message: fmt.Sprintf("unknown route %q", name)}
}

// NewArgumentCountMismatch creates an ArgumentCountMismatch error for the
// given route name with the expected and supplied argument counts.
func NewArgumentCountMismatch(name string, want, got int) *Error {
	return &Error{
		Code:    ErrCodeArgumentCountMismatch,
		Message: fmt.Sprintf("route %q expects %d argument(s), got %d", name, want, got),
	}
}

// NewRemoteCallFailed creates a RemoteCallFailed error wrapping cause.
func NewRemoteCallFailed(message string, cause error) *Error {
	return &Error{Code: ErrCodeRemoteCallFailed, Message: message, Cause: cause}
}

// NewReconciliationFailed creates a ReconciliationFailed error for the entity
// identified by sid, wrapping the underlying parse error.
func NewReconciliationFailed(sid string, cause error) *Error {
	return &Error{
		Code:    ErrCodeReconciliationFailed,
		Message: fmt.Sprintf("reconciling entity %q", sid),
		Cause:   cause,
	}
}

// isCode checks if err is an Error with the given code.
func isCode(err error, code int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsInvalidArgument checks if an error is an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return isCode(err, ErrCodeInvalidArgument)
}

// IsUnknownRoute checks if an error is an UnknownRoute error.
func IsUnknownRoute(err error) bool {
	return isCode(err, ErrCodeUnknownRoute)
}

// IsArgumentCountMismatch checks if an error is an ArgumentCountMismatch error.
func IsArgumentCountMismatch(err error) bool {
	return isCode(err, ErrCodeArgumentCountMismatch)
}

// IsRemoteCallFailed checks if an error is a RemoteCallFailed error.
func IsRemoteCallFailed(err error) bool {
	return isCode(err, ErrCodeRemoteCallFailed)
}

// IsReconciliationFailed checks if an error is a ReconciliationFailed error.
func IsReconciliationFailed(err error) bool {
	return isCode(err, ErrCodeReconciliationFailed)
}
