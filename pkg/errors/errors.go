package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the recommendation pipeline
type ErrorType string

const (
	// ErrorTypeConfigurationAbsent indicates a missing credential or setting
	ErrorTypeConfigurationAbsent ErrorType = "CONFIGURATION_ABSENT"

	// ErrorTypeRemoteCall indicates a network, quota or safety-block failure of an external service
	ErrorTypeRemoteCall ErrorType = "REMOTE_CALL"

	// ErrorTypeMalformedResponse indicates model text that does not follow the expected grammar
	ErrorTypeMalformedResponse ErrorType = "MALFORMED_RESPONSE"

	// ErrorTypeIndexUnavailable indicates the similarity index could not be reached or queried
	ErrorTypeIndexUnavailable ErrorType = "INDEX_UNAVAILABLE"

	// ErrorTypeValidation indicates structurally wrong input or output values
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeInternal indicates an unexpected internal failure
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsType reports whether any error in err's chain is an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// TypeOf returns the type of the first AppError in err's chain, or ErrorTypeInternal
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// NewConfigurationAbsentError creates a new configuration error
func NewConfigurationAbsentError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfigurationAbsent,
		Message: message,
	}
}

// NewRemoteCallError creates a new external service error
func NewRemoteCallError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRemoteCall,
		Message: message,
		Err:     err,
	}
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeMalformedResponse,
		Message: message,
	}
}

// NewIndexUnavailableError creates a new similarity index error
func NewIndexUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeIndexUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}
