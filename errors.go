package variant

import (
	"fmt"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// CodeInvalidCaseAccess is raised by non-try accessors called against a
	// case that is not active. It signals a programmer error; use the
	// TryGet forms to avoid it.
	CodeInvalidCaseAccess ErrorCode = "invalid_case_access"

	// CodeInvalidArgument reports a bad factory call: wrong arity, an
	// argument that cannot be coerced, or a value from another union.
	CodeInvalidArgument ErrorCode = "invalid_argument"

	// CodeUnknownCase reports a case, factory or field name the model does
	// not define.
	CodeUnknownCase ErrorCode = "unknown_case"
)

// Error is the runtime error type.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// NewError creates a new runtime error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new runtime error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidCaseAccess = NewError(CodeInvalidCaseAccess, "")
	ErrInvalidArgument   = NewError(CodeInvalidArgument, "")
	ErrUnknownCase       = NewError(CodeUnknownCase, "")
)
