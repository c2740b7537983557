package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig                  = "CONFIG_ERROR"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeStorage                 = "STORAGE_ERROR"
	CodeDatabase                = "DATABASE_ERROR"
	CodeInvalidInput            = "INVALID_INPUT"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrCollaborator = errors.New("collaborator unavailable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CollaboratorError marks err as a run-level failure of an external service.
func CollaboratorError(service string, err error) *AppError {
	return NewAppError(CodeCollaboratorUnavailable, service, errors.Join(ErrCollaborator, err))
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsAppError reports whether err carries an AppError with the given code.
func IsAppError(err error, code string) bool {
	return CodeOf(err) == code
}
