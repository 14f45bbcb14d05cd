package whatsapp

import (
	"errors"
	"fmt"
)

// ErrorType categorizes builder errors.
type ErrorType string

const (
	ErrCallerContract   ErrorType = "caller_contract"   // ambiguous or incomplete intent
	ErrDegradedResource ErrorType = "degraded_resource" // thumbnail unavailable, recovered locally
	ErrSchemaMismatch   ErrorType = "schema_mismatch"   // payload does not match the protocol schema
)

// BuildError wraps a builder failure with its classification.
type BuildError struct {
	Type    ErrorType
	Field   string // offending intent or payload field, if known
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

func (e *BuildError) Unwrap() error { return e.Err }

func callerError(field, format string, args ...any) *BuildError {
	return &BuildError{Type: ErrCallerContract, Field: field, Message: fmt.Sprintf(format, args...)}
}

func schemaError(field, format string, args ...any) *BuildError {
	return &BuildError{Type: ErrSchemaMismatch, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorTypeOf returns the classification of err, or "" if err is not a
// BuildError.
func ErrorTypeOf(err error) ErrorType {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Type
	}
	return ""
}

func IsCallerError(err error) bool { return ErrorTypeOf(err) == ErrCallerContract }

func IsSchemaMismatch(err error) bool { return ErrorTypeOf(err) == ErrSchemaMismatch }
