package sanctuary

import (
	"errors"
	"fmt"
)

// ErrorClass is the failure kind reported by registry operations.
type ErrorClass string

const (
	// ErrorClassValidation indicates a malformed intake request. Nothing was created.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassCapacity indicates no room remained in the target housing.
	ErrorClassCapacity ErrorClass = "capacity"

	// ErrorClassPrecondition indicates the primate's state forbids the operation,
	// for example a transfer before medication.
	ErrorClassPrecondition ErrorClass = "precondition"

	// ErrorClassNotFound indicates the primate or the housing was not where the
	// operation expected it.
	ErrorClassNotFound ErrorClass = "not_found"
)

// Error codes attached to classified errors.
const (
	ErrCodeInvalidField   = "INVALID_FIELD"
	ErrCodeNoIsolation    = "NO_ISOLATION_SPACE"
	ErrCodeEnclosureFull  = "ENCLOSURE_FULL"
	ErrCodeNotMedicated   = "NOT_MEDICATED"
	ErrCodeNotIsolated    = "NOT_ISOLATED"
	ErrCodeNotInIsolation = "NOT_IN_ISOLATION"
	ErrCodeNotInEnclosure = "NOT_IN_ENCLOSURE"
	ErrCodeNoEnclosure    = "NO_ENCLOSURE"
	ErrCodeUnknownPrimate = "UNKNOWN_PRIMATE"
	ErrCodePolicyDenied   = "POLICY_DENIED"
)

// Error is a classified sanctuary error.
type Error struct {
	// Class is the failure kind.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Field names the offending intake field for validation errors.
	Field string `json:"field,omitempty"`

	// Primate is the name of the primate involved, if any.
	Primate string `json:"primate,omitempty"`

	// Operation is the registry operation that failed.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Primate != "" {
		msg += fmt.Sprintf(" (primate=%s)", e.Primate)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on class and code so callers can compare against sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Class == t.Class
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewValidationError creates a validation error for the named field.
func NewValidationError(field, message string) *Error {
	return &Error{
		Class:   ErrorClassValidation,
		Message: message,
		Code:    ErrCodeInvalidField,
		Field:   field,
	}
}

// NewCapacityError creates a capacity error.
func NewCapacityError(message string) *Error {
	return &Error{
		Class:   ErrorClassCapacity,
		Message: message,
	}
}

// NewPreconditionError creates a precondition error.
func NewPreconditionError(message string) *Error {
	return &Error{
		Class:   ErrorClassPrecondition,
		Message: message,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Class:   ErrorClassNotFound,
		Message: message,
	}
}

// WithCode adds an error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithPrimate records the primate the error concerns.
func (e *Error) WithPrimate(name string) *Error {
	e.Primate = name
	return e
}

// WithOperation records the failing operation.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// ClassOf returns the class of a sanctuary error, or "" for anything else.
func ClassOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of a sanctuary error, or "" for anything else.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool {
	return ClassOf(err) == ErrorClassValidation
}

// IsCapacity returns true if the error is a capacity error.
func IsCapacity(err error) bool {
	return ClassOf(err) == ErrorClassCapacity
}

// IsPrecondition returns true if the error is a precondition error.
func IsPrecondition(err error) bool {
	return ClassOf(err) == ErrorClassPrecondition
}

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	return ClassOf(err) == ErrorClassNotFound
}
