package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure category. Codes are stable and are what
// callers and tests should match on, never the message text.
type ErrorCode string

const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrOutsideHome  ErrorCode = "OUTSIDE_HOME"
	ErrLocked       ErrorCode = "LOCKED"

	// Vault lifecycle
	ErrNotInitialized     ErrorCode = "NOT_INITIALIZED"
	ErrAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigSave  ErrorCode = "CONFIG_SAVE"

	// Path resolution and transitions
	ErrResolution ErrorCode = "RESOLUTION"
	ErrCollision  ErrorCode = "COLLISION"
	ErrFilesystem ErrorCode = "FILESYSTEM"

	// Repository errors
	ErrRepository ErrorCode = "REPOSITORY"
	ErrConflict   ErrorCode = "CONFLICT"
	ErrRejected   ErrorCode = "REJECTED"
)

// VaultError is a structured error with a code and optional details
type VaultError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *VaultError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *VaultError) Unwrap() error {
	return e.Wrapped
}

// Is matches any VaultError carrying the same code
func (e *VaultError) Is(target error) bool {
	var targetErr *VaultError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a VaultError with the given code and message
func New(code ErrorCode, message string) *VaultError {
	return &VaultError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a VaultError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *VaultError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err in a VaultError. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *VaultError {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps err with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *VaultError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *VaultError) WithDetail(key string, value interface{}) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *VaultError) WithDetails(details map[string]interface{}) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode reports whether any error in err's chain carries code
func IsErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &VaultError{Code: code})
}

// Coder is implemented by error types that carry a code without being a
// VaultError.
type Coder interface {
	ErrorCode() ErrorCode
}

// ErrorCode implements Coder
func (e *VaultError) ErrorCode() ErrorCode {
	return e.Code
}

// GetErrorCode returns the code of the outermost coded error in err's
// chain, or ErrUnknown
func GetErrorCode(err error) ErrorCode {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ErrUnknown
}

// GetErrorDetails returns the details of the outermost VaultError, or nil
func GetErrorDetails(err error) map[string]interface{} {
	var vaultErr *VaultError
	if errors.As(err, &vaultErr) {
		return vaultErr.Details
	}
	return nil
}
