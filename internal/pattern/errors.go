package pattern

import "fmt"

// Parse error codes for rejected pattern lines.
const (
	CodeEmpty          = "EMPTY"
	CodeComment        = "COMMENT"
	CodeMissingFrame   = "MISSING_FRAME"
	CodeBadFrame       = "BAD_FRAME"
	CodeMissingChannel = "MISSING_CHANNEL"
	CodeBadChannel     = "BAD_CHANNEL"
	CodeBadColor       = "BAD_COLOR"
	CodeMissingColor   = "MISSING_COLOR"
)

// Store error codes.
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeInvalidName = "INVALID_NAME"
	ErrCodeInvalidUTF8 = "INVALID_UTF8"
	ErrCodeIO          = "IO"
)

// ParseError describes one line the parser discarded.
type ParseError struct {
	Line  int
	Code  string
	Text  string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("line %d: %s: %q: %v", e.Line, e.Code, e.Text, e.Cause)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Code, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Error is returned by Store operations.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
