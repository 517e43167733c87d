package device

import (
	"errors"
	"fmt"
)

// Device error codes.
const (
	ErrCodeNotConnected  = "NOT_CONNECTED"
	ErrCodeConnectFailed = "CONNECT_FAILED"
	ErrCodeWriteFailed   = "WRITE_FAILED"
	ErrCodeReadFailed    = "READ_FAILED"
	ErrCodeUnsupported   = "UNSUPPORTED"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
)

// Error represents a device operation error.
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

// IsCode reports whether err carries the given device error code.
func IsCode(err error, code string) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code == code
	}
	return false
}
