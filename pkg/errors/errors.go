package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeDataQuality    Code = "DATA_QUALITY_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConfig         Code = "CONFIG_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Metadata describes how callers should treat errors of a given code.
type Metadata struct {
	Retryable     bool
	Recoverable   bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:     false,
		Recoverable:   true,
		PublicMessage: "validation failed",
	},
	CodeDataQuality: {
		Retryable:     false,
		Recoverable:   false,
		PublicMessage: "dataset quality below threshold",
	},
	CodeAuthentication: {
		Retryable:     false,
		Recoverable:   false,
		PublicMessage: "authentication failed",
	},
	CodeNotFound: {
		Retryable:     false,
		Recoverable:   true,
		PublicMessage: "resource not found",
	},
	CodeConfig: {
		Retryable:     false,
		Recoverable:   false,
		PublicMessage: "invalid configuration",
	},
	CodeDependency: {
		Retryable:     true,
		Recoverable:   false,
		PublicMessage: "dependency unavailable",
	},
	CodeInternal: {
		Retryable:     true,
		Recoverable:   false,
		PublicMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the value-carrying error used across the pipeline. Details hold
// the offending record id, field, or threshold values so callers can log
// and decide without string matching.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts a typed *Error from anywhere in the wrap chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
