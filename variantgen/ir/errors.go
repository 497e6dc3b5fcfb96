package ir

import "strings"

// ErrorCode is a machine-readable model error identifier.
type ErrorCode string

const (
	CodeDuplicateTag         ErrorCode = "duplicate_tag"
	CodeDuplicateCaseName    ErrorCode = "duplicate_case_name"
	CodeDuplicateFactoryName ErrorCode = "duplicate_factory_name"
	CodeDuplicateValueName   ErrorCode = "duplicate_value_name"
	CodeDuplicateOperation   ErrorCode = "duplicate_operation"
	CodeDuplicateUnionName   ErrorCode = "duplicate_union_name"
	CodeCyclicDecomposition  ErrorCode = "cyclic_decomposition"
	CodeNonExhaustiveMatch   ErrorCode = "non_exhaustive_match"
	CodeLayoutCollision      ErrorCode = "layout_collision"
	CodeInvalidDescriptor    ErrorCode = "invalid_descriptor"
	CodeEmptyUnion           ErrorCode = "empty_union"
)

// Error is a model-assembly defect. None of these are recoverable by retry:
// the input description has to be corrected.
type Error struct {
	Code    ErrorCode
	Union   string
	Cases   []string // cases involved, in declaration order
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Union != "" {
		b.WriteString(" in ")
		b.WriteString(e.Union)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches errors by code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrDuplicateTag         = &Error{Code: CodeDuplicateTag}
	ErrDuplicateCaseName    = &Error{Code: CodeDuplicateCaseName}
	ErrDuplicateFactoryName = &Error{Code: CodeDuplicateFactoryName}
	ErrDuplicateValueName   = &Error{Code: CodeDuplicateValueName}
	ErrDuplicateOperation   = &Error{Code: CodeDuplicateOperation}
	ErrDuplicateUnionName   = &Error{Code: CodeDuplicateUnionName}
	ErrCyclicDecomposition  = &Error{Code: CodeCyclicDecomposition}
	ErrNonExhaustiveMatch   = &Error{Code: CodeNonExhaustiveMatch}
	ErrLayoutCollision      = &Error{Code: CodeLayoutCollision}
	ErrInvalidDescriptor    = &Error{Code: CodeInvalidDescriptor}
	ErrEmptyUnion           = &Error{Code: CodeEmptyUnion}
)

// Errorf is a small constructor used by the model packages.
func Errorf(code ErrorCode, union string, cases []string, msg string) *Error {
	return &Error{Code: code, Union: union, Cases: cases, Message: msg}
}

// Codes returns the codes of every *Error found in err, including errors
// combined with errors.Join.
func Codes(err error) []ErrorCode {
	var codes []ErrorCode
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if e, ok := err.(*Error); ok {
			codes = append(codes, e.Code)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return codes
}
