package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers.
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeAITimeout        = "AI_TIMEOUT"
	CodeAIEmptyResponse  = "AI_EMPTY_RESPONSE"
	CodeAINotConfigured  = "AI_NOT_CONFIGURED"
	CodeAIUnavailable    = "AI_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
	internalErrorMessage = "internal server error"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewTimeoutError reports a reply generation call that ran past its deadline.
func NewTimeoutError(err error) error {
	return &DomainError{
		Code:       CodeAITimeout,
		Message:    "Request timed out. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

// NewEmptyResponseError reports a completion that came back blank.
func NewEmptyResponseError() error {
	return NewDomainError(CodeAIEmptyResponse, "AI returned empty response", http.StatusBadGateway, nil)
}

// NewConfigurationError reports a missing completion credential.
func NewConfigurationError(err error) error {
	return &DomainError{
		Code:       CodeAINotConfigured,
		Message:    "AI service not configured",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewUpstreamError reports any other completion failure.
func NewUpstreamError(err error) error {
	return &DomainError{
		Code:       CodeAIUnavailable,
		Message:    "Failed to generate suggestion",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    internalErrorMessage,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    internalErrorMessage,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
