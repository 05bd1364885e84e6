// Package failure defines the typed errors a run can end with.
//
// Packages wrap their low-level errors with fmt.Errorf and classify them once
// at the component boundary with one of the constructors below. The CLI maps
// the code to a process exit status.
package failure

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error identifier.
type Code string

// Error codes, one per failure class of a run.
const (
	CodeUsage                 Code = "USAGE"
	CodeConfig                Code = "CONFIG_ERROR"
	CodeMalformedPayload      Code = "MALFORMED_PAYLOAD"
	CodeMissingRequiredField  Code = "MISSING_REQUIRED_FIELD"
	CodeGenerationFailure     Code = "GENERATION_FAILURE"
	CodeFilesystemError       Code = "FILESYSTEM_ERROR"
	CodeVersionControlFailure Code = "VERSION_CONTROL_FAILURE"
	CodePublishFailure        Code = "PUBLISH_FAILURE"
)

// Error is a classified run error with optional details and a wrapped cause.
type Error struct {
	code       Code
	message    string
	details    map[string]any
	wrappedErr error
}

func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the machine-readable error code.
func (e *Error) Code() Code {
	return e.code
}

// Details returns the optional details map.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// WithDetail adds a single key/value to the error details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// LogAttrs flattens the error into slog key/value pairs.
func (e *Error) LogAttrs() []any {
	attrs := make([]any, 0, 2+2*len(e.details))
	attrs = append(attrs, "code", e.code)
	for k, v := range e.details {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// Constructors.

// Usage reports a bad command line.
func Usage(msg string) *Error {
	return &Error{code: CodeUsage, message: msg}
}

// Config reports missing or invalid process configuration.
func Config(msg string) *Error {
	return &Error{code: CodeConfig, message: msg}
}

// MalformedPayload reports a task document that cannot be decoded.
func MalformedPayload(msg string) *Error {
	return &Error{code: CodeMalformedPayload, message: msg}
}

// MissingField reports a required task document field that is absent.
func MissingField(field string) *Error {
	return &Error{code: CodeMissingRequiredField, message: field + " is required"}
}

// Generation reports an error from the text generation service.
func Generation(msg string) *Error {
	return &Error{code: CodeGenerationFailure, message: msg}
}

// Filesystem reports a failed write to the working tree or log directory.
func Filesystem(msg string) *Error {
	return &Error{code: CodeFilesystemError, message: msg}
}

// VersionControl reports a failed git step.
func VersionControl(step string) *Error {
	return &Error{code: CodeVersionControlFailure, message: step + " failed"}
}

// Publish reports a failed review request creation.
func Publish(msg string) *Error {
	return &Error{code: CodePublishFailure, message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps err to a process exit status: 0 on success, 2 for usage and
// configuration problems, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case Is(err, CodeUsage), Is(err, CodeConfig):
		return 2
	default:
		return 1
	}
}
