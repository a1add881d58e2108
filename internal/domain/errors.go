package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so wrapped sentinels
// still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeMissingCredential  = "MISSING_CREDENTIAL"
	ErrCodeExternalCallFailed = "EXTERNAL_CALL_FAILED"
	ErrCodeSchemaViolation    = "SCHEMA_VIOLATION"
)

// Validation errors
var (
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidGenerationJob   = NewDomainError(ErrCodeValidation, "invalid generation job")
	ErrInvalidJobStatus       = NewDomainError(ErrCodeValidation, "invalid generation job status")
	ErrInvalidQuestionCount   = NewDomainError(ErrCodeValidation, "question count must be positive")
	ErrInvalidPaginationToken = NewDomainError(ErrCodeValidation, "invalid cursor")
)

// Not found errors
var (
	ErrGenerationJobNotFound = NewDomainError(ErrCodeNotFound, "generation job not found")
)

// Credential errors
var (
	ErrMissingModelCredential = NewDomainError(ErrCodeMissingCredential, "generative model credential is not configured")
	ErrMissingAdminCredential = NewDomainError(ErrCodeMissingCredential, "backend admin token is not configured")
)

// Contract errors
var (
	ErrSchemaViolation = NewDomainError(ErrCodeSchemaViolation, "generated contest violates the contest schema")
	ErrExternalCall    = NewDomainError(ErrCodeExternalCallFailed, "external call failed")
)

// SchemaViolation wraps a structural problem in a generated contest.
func SchemaViolation(format string, args ...any) error {
	return NewDomainErrorWithCause(ErrCodeSchemaViolation, ErrSchemaViolation.Message, fmt.Errorf(format, args...))
}

// ExternalCallFailed wraps an error returned by a third-party service.
func ExternalCallFailed(service string, err error) error {
	return NewDomainErrorWithCause(ErrCodeExternalCallFailed, service+" call failed", err)
}

// HasCode reports whether err is, or wraps, a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}
