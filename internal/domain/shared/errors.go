package shared

import (
	"fmt"

	"github.com/samber/oops"
)

// Domain error codes
const (
	ErrCodeInvalidInput = 1001
	ErrCodeNotFound     = 1002

	// Session errors (2000-2999)
	ErrCodeInvalidStateTransition = 2001
	ErrCodePermissionDenied       = 2002
	ErrCodeStopCancelled          = 2003

	// Persistence errors (3000-3999)
	ErrCodeMissingCredential = 3001
	ErrCodeCredentialExpired = 3002
	ErrCodeSubmissionFailed  = 3003
	ErrCodeQueueFailed       = 3004

	// Route errors (4000-4999)
	ErrCodeBadWeather     = 4001
	ErrCodeNoCourse       = 4002
	ErrCodeCourseRejected = 4003
)

// NewDomainError creates a new domain error using oops
func NewDomainError(code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf("%s", message)
}

// NewDomainErrorf creates a new domain error with formatted message
func NewDomainErrorf(code int, format string, args ...interface{}) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf(format, args...)
}

// WrapDomainError wraps an existing error with domain context
func WrapDomainError(err error, code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Wrapf(err, "%s", message)
}

// IsCode reports whether err carries the given domain code
func IsCode(err error, code int) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return fmt.Sprint(oopsErr.Code()) == codeToString(code)
}

func codeToString(code int) string {
	switch code {
	case ErrCodeInvalidInput:
		return "INVALID_INPUT"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeInvalidStateTransition:
		return "INVALID_STATE_TRANSITION"
	case ErrCodePermissionDenied:
		return "PERMISSION_DENIED"
	case ErrCodeStopCancelled:
		return "STOP_CANCELLED"
	case ErrCodeMissingCredential:
		return "MISSING_CREDENTIAL"
	case ErrCodeCredentialExpired:
		return "CREDENTIAL_EXPIRED"
	case ErrCodeSubmissionFailed:
		return "SUBMISSION_FAILED"
	case ErrCodeQueueFailed:
		return "QUEUE_FAILED"
	case ErrCodeBadWeather:
		return "BAD_WEATHER"
	case ErrCodeNoCourse:
		return "NO_COURSE"
	case ErrCodeCourseRejected:
		return "COURSE_REJECTED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Common domain error builders
func ErrInvalidInput(msg string) error {
	return NewDomainError(ErrCodeInvalidInput, msg)
}

func ErrNotFound(resource string) error {
	return NewDomainErrorf(ErrCodeNotFound, "%s not found", resource)
}

func ErrInvalidTransition(action, state string) error {
	return NewDomainErrorf(ErrCodeInvalidStateTransition, "cannot %s while %s", action, state)
}

func ErrPermissionDenied(capability string) error {
	return NewDomainErrorf(ErrCodePermissionDenied, "%s permission denied", capability)
}

func ErrMissingCredential() error {
	return NewDomainError(ErrCodeMissingCredential, "login required to submit runs")
}
