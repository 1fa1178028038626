// Package domainerrors defines the error codes the service layer returns to
// callers. Stores return sentinel errors; services translate them into these
// coded errors so transports can map them without string matching.
package domainerrors

import "fmt"

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeBadRequest    Code = "bad_request"
	CodeUnauthorized  Code = "unauthorized"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodeUnprocessable Code = "unprocessable"
	CodeInternal      Code = "internal_error"
)

// Error carries a code plus a human-readable description. The description is
// safe to return to callers except for internal errors, where transports are
// expected to drop it.
type Error struct {
	Code        Code
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// New builds a coded error.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Newf builds a coded error with a formatted description.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error, defaulting to CodeInternal for
// errors produced outside the domain layer.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}

// DescriptionOf extracts the description from a coded error, or the plain
// error text otherwise.
func DescriptionOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Description
	}
	return err.Error()
}
