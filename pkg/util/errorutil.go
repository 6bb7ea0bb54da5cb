package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried in the "code" field of every error body.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Reason distinguishes failure kinds that share an HTTP status and code.
type Reason string

const (
	ReasonHeaderMissing         Reason = "HEADER_MISSING"
	ReasonHeaderMalformed       Reason = "HEADER_MALFORMED"
	ReasonTokenExpired          Reason = "TOKEN_EXPIRED"
	ReasonTokenSignatureInvalid Reason = "TOKEN_SIGNATURE_INVALID"
	ReasonTokenMalformed        Reason = "TOKEN_MALFORMED"
	ReasonPrincipalNotFound     Reason = "PRINCIPAL_NOT_FOUND"
	ReasonPrincipalInactive     Reason = "PRINCIPAL_INACTIVE"
	ReasonRoleNotAllowed        Reason = "ROLE_NOT_ALLOWED"
	ReasonInvalidCredentials    Reason = "INVALID_CREDENTIALS"
	ReasonRefreshDenied         Reason = "REFRESH_DENIED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Reason     Reason
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

// Body renders the JSON error payload. Details are merged at the top level so
// diagnostic fields such as required_roles sit next to code and message.
func (e *DomainError) Body() fiber.Map {
	body := fiber.Map{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}
	for k, v := range e.Details {
		if _, reserved := body[k]; reserved {
			continue
		}
		body[k] = v
	}
	return body
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
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

// NewUnauthorized builds a 401 tagged with the failure reason.
func NewUnauthorized(reason Reason, message string) *DomainError {
	return &DomainError{
		Code:       CodeUnauthorized,
		Reason:     reason,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden builds a 403 tagged with the failure reason. Authorization
// failures share the UNAUTHORIZED code with authentication failures; the
// status and reason tell them apart.
func NewForbidden(reason Reason, message string, details map[string]any) *DomainError {
	return &DomainError{
		Code:       CodeUnauthorized,
		Reason:     reason,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		Details:    details,
	}
}

func NewRateLimited(message string) *DomainError {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
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
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	return NewInternalError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidationFailed
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return "REQUEST_FAILED"
}
