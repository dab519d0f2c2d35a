package errors

import (
	"errors"
	"fmt"
)

var (
	// Registration errors
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateTransactionID = errors.New("transaction id already exists")

	// Gateway errors
	ErrGatewayAuth        = errors.New("gateway authentication failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrVerificationFailed = errors.New("payment verification failed")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
